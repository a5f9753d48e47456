package db

import "errors"

// Sentinel errors for store operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
)

// Command names recorded in Error.Op.
const (
	OpCreateIndex      = "FT.CREATE"
	OpDropIndex        = "FT.DROPINDEX"
	OpIndexInfo        = "FT.INFO"
	OpSearch           = "FT.SEARCH"
	OpDel              = "DEL"
	OpHDel             = "HDEL"
	OpHGetAll          = "HGETALL"
	OpHSet             = "HSET"
	OpExists           = "EXISTS"
	OpGet              = "GET"
	OpSet              = "SET"
	OpZAdd             = "ZADD"
	OpZRange           = "ZRANGE"
	OpZRemRangeByScore = "ZREMRANGEBYSCORE"
)

// Error records the failed command and the key or index it touched.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Key + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
