package main

import (
	"errors"
	"log"

	"github.com/joho/godotenv"

	appbot "salesbot/app/bot"
	"salesbot/core/buildinfo"
	corecmd "salesbot/core/cmd"
)

var errUnexpectedConfig = errors.New("unexpected config carrier type")

func main() {
	// Optional .env for local runs; real deployments set the environment.
	_ = godotenv.Load()

	log.Printf("salesbot %s (%s)", buildinfo.Version, buildinfo.Commit)

	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return appbot.LoadConfig(path)
		},
		Bootstrap: func(cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			appCfg, ok := cfg.(*appbot.Config)
			if !ok {
				return nil, errUnexpectedConfig
			}
			return appbot.Bootstrap(appCfg)
		},
	})
	if err != nil {
		log.Fatalf("salesbot: %v", err)
	}
}
