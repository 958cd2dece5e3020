package sql

import (
	"context"
	"database/sql"
	"net/http"
	"net/url"
	"strings"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/horizenofficial/sctemplate/errors"
	"github.com/horizenofficial/sctemplate/model"
	"github.com/horizenofficial/sctemplate/settings"
	"github.com/horizenofficial/sctemplate/ulogger"
	"github.com/horizenofficial/sctemplate/util"
	"github.com/horizenofficial/sctemplate/util/usql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type SQL struct {
	db     *usql.DB
	engine util.SQLEngine
	logger ulogger.Logger
}

func New(logger ulogger.Logger, tSettings *settings.Settings, storeURL *url.URL) (*SQL, error) {
	logger = logger.New("scsql")

	db, err := util.InitSQLDB(logger, storeURL, tSettings)
	if err != nil {
		return nil, errors.NewStorageError("failed to init sql db", err)
	}

	engine := util.SQLEngine(storeURL.Scheme)

	if err = createSchema(db, engine); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQL{
		db:     db,
		engine: engine,
		logger: logger,
	}, nil
}

func createSchema(db *usql.DB, engine util.SQLEngine) error {
	blobType := "BLOB"
	timestampType := "TEXT"

	if engine == util.Postgres {
		blobType = "BYTEA"
		timestampType = "TIMESTAMPTZ"
	}

	if _, err := db.Exec(`
	  CREATE TABLE IF NOT EXISTS sidechains (
	     id                       ` + blobType + ` PRIMARY KEY
	    ,version                  INTEGER NOT NULL
	    ,withdrawal_epoch_length  BIGINT NOT NULL
	    ,creation_height          BIGINT NOT NULL
	    ,inserted_at              ` + timestampType + ` NOT NULL DEFAULT CURRENT_TIMESTAMP
	  );
	`); err != nil {
		return errors.NewStorageError("could not create sidechains table", err)
	}

	return nil
}

func (s *SQL) Health(ctx context.Context, _ bool) (int, string, error) {
	if err := s.db.PingContext(ctx); err != nil {
		return http.StatusServiceUnavailable, "SQL store unavailable", errors.NewStorageUnavailableError("ping failed", err)
	}

	return http.StatusOK, "SQL store available", nil
}

func (s *SQL) Add(ctx context.Context, sc *model.Sidechain) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sidechains (id, version, withdrawal_epoch_length, creation_height) VALUES ($1, $2, $3, $4)`,
		sc.ID[:], sc.Version, sc.WithdrawalEpochLength, sc.CreationHeight,
	)
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate") {
			return errors.NewSidechainExistsError("sidechain %s already registered", sc.ID, err)
		}

		return errors.NewStorageError("failed to insert sidechain %s", sc.ID, err)
	}

	s.logger.Debugf("[SidechainStore] registered %s, withdrawal epoch length %d", sc.ID, sc.WithdrawalEpochLength)

	return nil
}

func (s *SQL) Get(ctx context.Context, scID chainhash.Hash) (*model.Sidechain, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, version, withdrawal_epoch_length, creation_height FROM sidechains WHERE id = $1`,
		scID[:],
	)

	sc, err := scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewSidechainNotFoundError("sidechain %s not found", scID)
		}

		return nil, errors.NewStorageError("failed to read sidechain %s", scID, err)
	}

	return sc, nil
}

func (s *SQL) Exists(ctx context.Context, scID chainhash.Hash) (bool, error) {
	var n int

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sidechains WHERE id = $1`, scID[:]).Scan(&n); err != nil {
		return false, errors.NewStorageError("failed to look up sidechain %s", scID, err)
	}

	return n > 0, nil
}

func (s *SQL) List(ctx context.Context) ([]*model.Sidechain, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, version, withdrawal_epoch_length, creation_height FROM sidechains ORDER BY id`,
	)
	if err != nil {
		return nil, errors.NewStorageError("failed to list sidechains", err)
	}

	defer rows.Close()

	var list []*model.Sidechain

	for rows.Next() {
		sc, err := scan(rows)
		if err != nil {
			return nil, errors.NewStorageError("failed to read sidechain row", err)
		}

		list = append(list, sc)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.NewStorageError("failed to iterate sidechains", err)
	}

	return list, nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*model.Sidechain, error) {
	var (
		id                    []byte
		version               int32
		withdrawalEpochLength int64
		creationHeight        int64
	)

	if err := row.Scan(&id, &version, &withdrawalEpochLength, &creationHeight); err != nil {
		return nil, err
	}

	hash, err := chainhash.NewHash(id)
	if err != nil {
		return nil, err
	}

	return &model.Sidechain{
		ID:                    *hash,
		Version:               version,
		WithdrawalEpochLength: uint32(withdrawalEpochLength), //nolint:gosec
		CreationHeight:        uint32(creationHeight),        //nolint:gosec
	}, nil
}
