// Package provider implements cloud infrastructure provider clients.
// This is part of the Imperative Shell - handles I/O with cloud APIs.
package provider

import (
	"context"

	coreprovider "github.com/artpar/capdeploy/internal/core/provider"
)

// ProvisionRequest contains parameters for creating a cloud host.
type ProvisionRequest struct {
	HostName     string
	Region       string
	Size         string
	SSHPublicKey string // Public key to install on the host
}

// ProvisionResult contains the result of creating a cloud host.
type ProvisionResult struct {
	ProviderInstanceID string
	PublicIP           string
}

// DestroyRequest contains parameters for destroying a cloud host.
type DestroyRequest struct {
	ProviderInstanceID string
	HostName           string // derives resource names: "capdeploy-{HostName}"
	Region             string // AWS needs this to target the correct region
}

// Provider defines the interface for cloud infrastructure providers.
type Provider interface {
	// CreateHost provisions a new cloud host ready for a deploy run:
	// the bootstrap user data installs python3, nginx and ufw.
	CreateHost(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error)

	// DestroyHost terminates a cloud host and cleans up associated resources.
	DestroyHost(ctx context.Context, req DestroyRequest) error

	// ListRegions returns available regions (live from API).
	ListRegions(ctx context.Context) ([]coreprovider.Region, error)

	// ListSizes returns available host sizes for a region (live from API).
	ListSizes(ctx context.Context, region string) ([]coreprovider.InstanceSize, error)
}

// bootstrapUserData is the cloud-init script every provider passes to a new
// host. It preinstalls the system packages a deploy run would otherwise pull
// in, so the first deploy converges faster.
func bootstrapUserData() string {
	return `#!/bin/bash
set -e
apt-get update -y
apt-get install -y python3 python3-venv python3-pip nginx ufw
systemctl enable nginx
systemctl start nginx
`
}
