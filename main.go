package main

import (
	"github.com/sirupsen/logrus"

	"DocDB/bootstrap"
)

func main() {
	logrus.Info("starting docdb...")
	if _, err := bootstrap.Run(); err != nil {
		logrus.WithError(err).Fatal("bootstrap failed")
	}
}
