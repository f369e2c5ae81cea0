package constants

type ContextKey string

const (
	LoggerKey    ContextKey = "logger"
	ParamsKey    ContextKey = "params"
	TxKey        ContextKey = "tx"
	PoolKey      ContextKey = "pool"
	TenantIDKey  ContextKey = "tenant_id"
	RLSKey       ContextKey = "rls_enforce"
	RequestStart ContextKey = "request_start"
)
