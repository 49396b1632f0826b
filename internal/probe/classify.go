package probe

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"pgprobe/pkg/types"
)

// classifyConnect maps a connect-phase error onto the probe taxonomy.
func classifyConnect(err error) types.Status {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "28P01": // invalid_password
			return types.StatusAuthFailed
		case "28000": // invalid_authorization_specification
			return types.StatusAuthFailed
		case "3D000": // invalid_catalog_name
			return types.StatusDatabaseMissing
		}
	}
	return types.StatusConnectFailed
}
