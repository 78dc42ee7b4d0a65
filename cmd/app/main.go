package main

import (
	"github.com/ds124wfegd/event-booker/config"
	"github.com/ds124wfegd/event-booker/internal/appServer"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(new(logrus.JSONFormatter))

	v, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}

	cfg, err := config.ParseConfig(v)
	if err != nil {
		logrus.WithError(err).Fatal("parse config")
	}

	// tokens signed with an empty key would verify against any other empty key
	if cfg.JWT.Secret == "" {
		logrus.Fatal("jwt secret is not configured, set jwt.secret or JWT_SECRET")
	}

	logrus.WithFields(logrus.Fields{
		"storage": cfg.Storage.Driver,
		"queue":   cfg.Queue.Enabled,
		"port":    cfg.Server.Port,
	}).Info("starting event booker")

	appServer.NewServer(cfg)
}
