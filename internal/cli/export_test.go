package cli

// Export internal functions for black-box-style testing within the package.

var (
	RunConfigSet  = runConfigSet
	RunConfigGet  = runConfigGet
	RunConfigList = runConfigList

	IsValidConfigKey = isValidConfigKey
	ValidConfigKeys  = validConfigKeys

	ClampParallel          = clampParallel
	DeriveOutputPath       = deriveOutputPath
	SupportedFormatsList   = supportedFormatsList
	RunTranscribe          = runTranscribe

	DeriveStructuredOutputPath = deriveStructuredOutputPath
	RunStructure               = runStructure
	RestructureContent         = restructureContent
)
