package main

import (
	"log"

	"github.com/m3rciful/logibot/app"
	corecmd "github.com/m3rciful/logibot/core/cmd"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config/config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			cfg, err := app.LoadConfig(path)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		},
		Bootstrap: app.Bootstrap,
	})
	if err != nil {
		log.Fatalf("logibot: %v", err)
	}
}
