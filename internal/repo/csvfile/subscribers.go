package csvfile

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/hamed0406/sshwatch/internal/domain"
	serrors "github.com/hamed0406/sshwatch/internal/errors"
)

// Subscriber file columns. master is optional.
const (
	ColChatID = "chat_id"
	ColMaster = "master"
)

// SubscriberFile is the fixed list of chat destinations.
type SubscriberFile struct {
	Path      string
	Delimiter rune
}

func NewSubscriberFile(path string, delim rune) *SubscriberFile {
	if delim == 0 {
		delim = DefaultDelimiter
	}
	return &SubscriberFile{Path: path, Delimiter: delim}
}

func (s *SubscriberFile) Load(ctx context.Context) ([]domain.Subscriber, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, header, err := readTable(s.Path, s.Delimiter, ColChatID)
	if err != nil {
		return nil, err
	}
	hasMaster := slices.Contains(header, ColMaster)

	out := make([]domain.Subscriber, 0, len(rows))
	for _, r := range rows {
		sub, err := subscriberFrom(r, hasMaster)
		if err != nil {
			return nil, serrors.WrapWithCode(err, serrors.ErrConfig,
				"Bad row in "+s.Path, "chat_id must be an integer, master a yes/no value")
		}
		out = append(out, sub)
	}
	return out, nil
}

func subscriberFrom(r record, hasMaster bool) (domain.Subscriber, error) {
	raw := r.get(ColChatID)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return domain.Subscriber{}, fmt.Errorf("line %d: chat_id %q is not an integer", r.line, raw)
	}
	sub := domain.Subscriber{ChatID: id}
	if hasMaster {
		m, err := ParseMaster(r.get(ColMaster))
		if err != nil {
			return domain.Subscriber{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		sub.Master = m
	}
	return sub, nil
}

// ParseMaster interprets the boolean-like master marker.
func ParseMaster(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "x", "master":
		return true, nil
	case "", "0", "false", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("master %q is not a yes/no value", v)
}
