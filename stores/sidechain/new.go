package sidechain

import (
	"net/url"

	"github.com/horizenofficial/sctemplate/errors"
	"github.com/horizenofficial/sctemplate/settings"
	"github.com/horizenofficial/sctemplate/stores/sidechain/memory"
	"github.com/horizenofficial/sctemplate/stores/sidechain/sql"
	"github.com/horizenofficial/sctemplate/ulogger"
)

func NewStore(logger ulogger.Logger, tSettings *settings.Settings, storeURL *url.URL) (Store, error) {
	if storeURL == nil {
		return nil, errors.NewConfigurationError("sidechain store url is not set")
	}

	switch storeURL.Scheme {
	case "memory":
		return memory.New(), nil
	case "postgres", "sqlite", "sqlitememory":
		return sql.New(logger, tSettings, storeURL)
	}

	return nil, errors.NewStorageError("unknown scheme: %s", storeURL.Scheme)
}
