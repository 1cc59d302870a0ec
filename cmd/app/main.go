package main

import (
	"github.com/Debukan/SpeechTrap/internal/app"
	"github.com/Debukan/SpeechTrap/internal/config"
)

func main() {
	app.Go(config.Load())
}
