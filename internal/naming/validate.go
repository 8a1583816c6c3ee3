package naming

import "martianoff/visitorgen/visitorerr"

// Artifact names used in diagnostics.
const (
	ArtifactLambdaImpl      = "lambda implementation"
	ArtifactLambdaBuilder   = "lambda builder"
	ArtifactConstantImpl    = "constant implementation"
	ArtifactConstantBuilder = "constant builder"
	ArtifactDefaultImpl     = "default implementation"
	ArtifactDefaultBuilder  = "default builder"
)

// Validate reports toggle combinations that cannot be honoured for root.
// The returned config has the offending toggles switched off, so synthesis
// can proceed with the remaining artifacts.
func Validate(root visitorerr.Subject, cfg DispatchConfig) (DispatchConfig, []error) {
	var errs []error
	if cfg.DefaultBuilderEnabled && !cfg.LambdaImplEnabled {
		errs = append(errs, visitorerr.NewInvalidConfigCombinationError(root, ArtifactDefaultBuilder,
			"it builds a lambda implementation, enable "+KeyLambdaImpl.Short()))
		cfg.DefaultBuilderEnabled = false
	}
	if cfg.LambdaBuilderEnabled && !cfg.LambdaImplEnabled {
		errs = append(errs, visitorerr.NewInvalidConfigCombinationWarning(root, ArtifactLambdaBuilder,
			KeyLambdaImpl.Short()+" is disabled"))
		cfg.LambdaBuilderEnabled = false
	}
	if cfg.ArgumentName == cfg.VisitorArgName {
		errs = append(errs, visitorerr.NewInvalidConfigCombinationWarning(root, "argument name",
			"it equals the visitor parameter name, using "+DefaultArgumentName+" and "+DefaultVisitorArgName))
		cfg.ArgumentName, cfg.VisitorArgName = DefaultArgumentName, DefaultVisitorArgName
	}
	return cfg, errs
}
