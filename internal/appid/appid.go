// Package appid holds RootLab's application identity. The identity is
// compiled in rather than discovered from an app.yaml so the binary behaves
// the same wherever it runs.
package appid

import (
	"github.com/fulmenhq/gofulmen/appidentity"

	"github.com/rootlab/rootlab/internal/config"
)

const description = "structured AI lessons streamed from a language model"

// Get returns the application identity.
func Get() *appidentity.Identity {
	return &appidentity.Identity{
		BinaryName:  config.AppName,
		ConfigName:  config.AppName,
		EnvPrefix:   config.EnvPrefix,
		Description: description,
	}
}
