// Command image-processor resizes cover images from the image_processing queue.
package main

import "github.com/retro-catalog/catalog-events/internal/app"

func main() {
	app.Run("image-processor", app.ImageProcessor())
}
