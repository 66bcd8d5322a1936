package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
)

var (
	log  *zap.Logger
	once sync.Once
)

// GetLogger returns the shared zap.Logger instance, built once on first use.
// Production config when APP_ENV=production, development config otherwise.
func GetLogger() *zap.Logger {
	once.Do(func() {
		var err error
		if os.Getenv("APP_ENV") == "production" {
			log, err = zap.NewProduction()
		} else {
			log, err = zap.NewDevelopment()
		}
		if err != nil {
			panic("failed logger setup: " + err.Error())
		}
	})
	return log
}
