// Package deadletter records messages the consumer dropped, either because
// they could not be decoded or because they ran out of delivery attempts.
package deadletter
