package plan

// =============================================================================
// Plan Construction
// =============================================================================

// Options control which optional steps are included in the plan.
type Options struct {
	// ManageProxy includes the nginx vhost step.
	ManageProxy bool

	// ManageFirewall includes the ufw allow-rule step.
	ManageFirewall bool
}

// DefaultOptions returns the options for a full deploy.
func DefaultOptions() Options {
	return Options{
		ManageProxy:    true,
		ManageFirewall: true,
	}
}

// Build returns the deployment steps for the given options, in declaration
// order. Dependencies encode the procedure's ordering constraints:
//
//   - packages is a leaf step
//   - appdir needs the ownership tooling from packages
//   - runtime and secrets both live under appdir
//   - the service unit references the runtime env and the secret file
//   - proxy only needs the web server package installed
//   - firewall depends on nothing functionally but is declared late so the
//     host is not exposed before the service exists
//   - activate needs the unit registered and the ports open
//
// Package install failures are advisory: a partially installed host is
// still worth converging further, matching redeploy-over-broken-mirror
// behavior. Proxy, firewall, and the activation report are advisory for
// the same reason. The four steps that decide whether the service can run
// at all are fatal.
func Build(opts Options) []Step {
	steps := []Step{
		{
			ID:       StepPackages,
			Name:     "install host packages",
			Class:    ClassConverge,
			Severity: SeverityAdvisory,
		},
		{
			ID:        StepAppDir,
			Name:      "provision application directory",
			Class:     ClassConverge,
			Severity:  SeverityFatal,
			DependsOn: []StepID{StepPackages},
		},
		{
			ID:        StepRuntime,
			Name:      "set up runtime environment",
			Class:     ClassConverge,
			Severity:  SeverityFatal,
			DependsOn: []StepID{StepAppDir},
		},
		{
			ID:        StepSecrets,
			Name:      "materialize secret file",
			Class:     ClassCreateOnce,
			Severity:  SeverityFatal,
			DependsOn: []StepID{StepAppDir},
		},
		{
			ID:        StepUnit,
			Name:      "register service unit",
			Class:     ClassConverge,
			Severity:  SeverityFatal,
			DependsOn: []StepID{StepRuntime, StepSecrets},
		},
	}

	if opts.ManageProxy {
		steps = append(steps, Step{
			ID:        StepProxy,
			Name:      "install reverse proxy vhost",
			Class:     ClassConverge,
			Severity:  SeverityAdvisory,
			DependsOn: []StepID{StepPackages},
		})
	}

	if opts.ManageFirewall {
		steps = append(steps, Step{
			ID:       StepFirewall,
			Name:     "apply firewall rules",
			Class:    ClassConverge,
			Severity: SeverityAdvisory,
		})
	}

	activate := Step{
		ID:        StepActivate,
		Name:      "activate service and report",
		Class:     ClassConverge,
		Severity:  SeverityAdvisory,
		DependsOn: []StepID{StepUnit},
	}
	if opts.ManageFirewall {
		activate.DependsOn = append(activate.DependsOn, StepFirewall)
	}
	steps = append(steps, activate)

	return steps
}
