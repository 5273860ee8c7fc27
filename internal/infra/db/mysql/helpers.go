package mysql

import (
	"encoding/json"
	"log"

	"github.com/go-sql-driver/mysql"
)

const duplicateEntryErrNo = 1062

// isDuplicate reports whether err is a uniqueness violation.
func isDuplicate(err error) bool {
	if me, ok := err.(*mysql.MySQLError); ok {
		return me.Number == duplicateEntryErrNo
	}
	return false
}

// decodeJSON unmarshals a nullable JSON column into dst and reports success.
// A malformed payload is logged and skipped, never fatal: one bad historical
// row must not abort a whole summary.
func decodeJSON(raw []byte, dst any, what string) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		log.Printf("mysql: skipping malformed %s payload: %v", what, err)
		return false
	}
	return true
}
