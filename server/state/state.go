package state

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/indieinfra/plaza/config"
	"github.com/indieinfra/plaza/lifecycle"
	"github.com/indieinfra/plaza/storage/document"
)

type PlazaState struct {
	Cfg         *config.Config
	Documents   document.Store
	Coordinator *lifecycle.Coordinator
	Registry    *prometheus.Registry
}
