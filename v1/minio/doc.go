// Package minio stores processed images in an S3-compatible bucket.
package minio
