package config

// EnvPrefix is applied by envconfig when resolving struct tags.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "HANDOVA_DB_DSN"
	EnvDBHost = "HANDOVA_DB_HOST"
	EnvDBUser = "HANDOVA_DB_USER"
	EnvDBName = "HANDOVA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
