package core

import "pkt.systems/pslog"

// ServiceDeps captures the collaborators of the tab service.
type ServiceDeps struct {
	Gateway Gateway
	Catalog Catalog
	States  StateStore
	Logger  pslog.Logger
}
