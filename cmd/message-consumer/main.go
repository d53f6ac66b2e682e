// Command message-consumer consumes game_events and reports each game as processed.
package main

import "github.com/retro-catalog/catalog-events/internal/app"

func main() {
	app.Run("message-consumer", app.MessageConsumer())
}
