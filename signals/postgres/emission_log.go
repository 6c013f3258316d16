package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/LerianStudio/lib-signals/signals"
	"github.com/LerianStudio/lib-signals/signals/internal/nilcheck"
	libLog "github.com/LerianStudio/lib-signals/signals/log"
	"github.com/LerianStudio/lib-signals/signals/payload"
	"github.com/LerianStudio/lib-signals/signals/txn"
)

const (
	// DefaultEmissionTable matches the table created by the bundled migrations.
	DefaultEmissionTable   = "signal_emissions"
	maxSQLIdentifierLength = 63
)

var (
	ErrInvalidIdentifier = errors.New("invalid sql identifier")
	identifierPattern    = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// EmissionLogOption configures an EmissionLog.
type EmissionLogOption func(*EmissionLog)

// WithTable sets the table, optionally schema qualified.
func WithTable(table string) EmissionLogOption {
	return func(l *EmissionLog) {
		l.table = strings.TrimSpace(table)
	}
}

// WithEmissionLogger sets the logger used for write failures.
func WithEmissionLogger(logger libLog.Logger) EmissionLogOption {
	return func(l *EmissionLog) {
		if !nilcheck.Interface(logger) {
			l.logger = logger
		}
	}
}

// EmissionLog is a signal handler that stores every emit it receives. Inside
// a txn unit backed by a Resource the row is written in that transaction;
// otherwise it is written through db directly.
type EmissionLog struct {
	db     Querier
	table  string
	insert string
	logger libLog.Logger
}

// NewEmissionLog validates the table name and returns an EmissionLog.
func NewEmissionLog(db Querier, opts ...EmissionLogOption) (*EmissionLog, error) {
	if nilcheck.Interface(db) {
		return nil, ErrConnectionRequired
	}

	l := &EmissionLog{
		db:     db,
		table:  DefaultEmissionTable,
		logger: libLog.NewNop(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	if err := validateIdentifierPath(l.table); err != nil {
		return nil, fmt.Errorf("%w: table %q", err, l.table)
	}

	l.insert = fmt.Sprintf(
		"INSERT INTO %s (signal, sender, payload, handler_id, emitted_at) VALUES ($1, $2, $3, $4, $5)",
		quoteIdentifierPath(l.table),
	)

	return l, nil
}

// Handle implements signals.Handler.
func (l *EmissionLog) Handle(ctx context.Context, sender signals.Sender, p any, meta signals.Metadata) (any, error) {
	if l == nil {
		return nil, ErrConnectionRequired
	}

	if txn.Finished(ctx) {
		return nil, txn.ErrUnitFinished
	}

	if fields, ok := p.(payload.Fields); ok {
		p = payload.Collect(fields)
	}

	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode signal payload: %w", err)
	}

	result, err := Executor(ctx, l.db).ExecContext(ctx, l.insert,
		string(meta.Signal),
		string(sender),
		body,
		meta.HandlerID.String(),
		meta.EmittedAt,
	)
	if err != nil {
		l.logger.Log(ctx, libLog.LevelError, "failed to record signal emission",
			libLog.String("signal", string(meta.Signal)),
			libLog.String("error", sanitizeSensitiveString(err.Error())),
		)

		return nil, fmt.Errorf("record signal emission: %w", err)
	}

	return result, nil
}

// Register registers the log for signal on registry.
func (l *EmissionLog) Register(registry *signals.HandlerRegistry, signal signals.Signal, opts ...signals.RegisterOption) (signals.HandlerID, error) {
	return registry.Register(signal, l.Handle, opts...)
}

func validateIdentifier(identifier string) error {
	if len(identifier) > maxSQLIdentifierLength || !identifierPattern.MatchString(identifier) {
		return ErrInvalidIdentifier
	}

	return nil
}

func validateIdentifierPath(path string) error {
	for _, part := range strings.Split(path, ".") {
		if err := validateIdentifier(strings.TrimSpace(part)); err != nil {
			return err
		}
	}

	return nil
}

func quoteIdentifierPath(path string) string {
	parts := strings.Split(path, ".")
	quoted := make([]string, 0, len(parts))

	for _, part := range parts {
		quoted = append(quoted, quoteIdentifier(strings.TrimSpace(part)))
	}

	return strings.Join(quoted, ".")
}

func quoteIdentifier(identifier string) string {
	return "\"" + strings.ReplaceAll(identifier, "\"", "\"\"") + "\""
}
