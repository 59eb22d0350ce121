// Package feed broadcasts write notifications between sessions over Redis pub/sub
// so other open boards can refresh.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"dshbd-cli/internal/logging"
)

const DefaultChannel = "dshbd:changes"

// Change describes one successful write.
type Change struct {
	Origin   string `json:"origin"`
	Kind     string `json:"kind"` // task, board, note
	Op       string `json:"op"`   // create, update, delete
	BoardID  int64  `json:"boardId,omitempty"`
	EntityID int64  `json:"entityId,omitempty"`
	At       string `json:"at"`
}

type Options struct {
	URL     string
	Channel string
	Log     *logrus.Entry
}

type Feed struct {
	rc      *redis.Client
	channel string
	origin  string
	log     *logrus.Entry
	owned   bool
}

// New connects to the Redis server at opts.URL (redis://...).
func New(opts Options) (*Feed, error) {
	u := strings.TrimSpace(opts.URL)
	if u == "" {
		return nil, errors.New("missing redis url")
	}
	ro, err := redis.ParseURL(u)
	if err != nil {
		return nil, err
	}
	f := NewWithClient(redis.NewClient(ro), opts.Channel, opts.Log)
	f.owned = true
	return f, nil
}

// NewWithClient uses an existing client; Close leaves it open.
func NewWithClient(rc *redis.Client, channel string, log *logrus.Entry) *Feed {
	if strings.TrimSpace(channel) == "" {
		channel = DefaultChannel
	}
	if log == nil {
		log = logging.For("feed")
	}
	return &Feed{rc: rc, channel: channel, origin: uuid.NewString(), log: log}
}

func (f *Feed) Origin() string { return f.origin }

func (f *Feed) Ping(ctx context.Context) error {
	return f.rc.Ping(ctx).Err()
}

func (f *Feed) Publish(ctx context.Context, c Change) error {
	c.Origin = f.origin
	if c.At == "" {
		c.At = time.Now().UTC().Format(time.RFC3339Nano)
	}
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return f.rc.Publish(ctx, f.channel, b).Err()
}

// Announce publishes c in the background; failures are logged only.
func (f *Feed) Announce(c Change) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := f.Publish(ctx, c); err != nil {
			f.log.WithError(err).WithField("kind", c.Kind).Warn("unable to publish change")
		}
	}()
}

// Subscribe delivers changes made by other sessions until ctx is done,
// resubscribing whenever the pub/sub channel closes.
func (f *Feed) Subscribe(ctx context.Context, fn func(Change)) {
	for {
		sub := f.rc.Subscribe(ctx, f.channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				var c Change
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
					f.log.WithError(err).Error("unable to parse change")
					continue
				}
				if c.Origin == f.origin {
					continue
				}
				fn(c)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		f.log.Error("pubsub channel closed, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (f *Feed) Close() error {
	if f.owned {
		return f.rc.Close()
	}
	return nil
}
