package config

const (
	EnvPrefix = "DESTELLO"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvDBDSN  = "DESTELLO_DB_DSN"
	EnvDBHost = "DESTELLO_DB_HOST"
	EnvDBUser = "DESTELLO_DB_USER"
	EnvDBName = "DESTELLO_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
