package valkey

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/pdfchat/internal/db"
)

// RunScript executes sc atomically. The script must reply {code, value}.
func (s *Store) RunScript(ctx context.Context, sc *db.Script, keys, args []string) (db.ScriptReply, error) {
	reply, err := s.lua(sc).Exec(ctx, s.client, keys, args).ToArray()
	if err != nil {
		return db.ScriptReply{}, &db.Error{Op: db.OpEval, Err: fmt.Errorf("%s: %w", sc.Name, err)}
	}
	if len(reply) != 2 {
		return db.ScriptReply{}, &db.Error{
			Op:  db.OpEval,
			Err: fmt.Errorf("%s: expected 2 reply values, got %d", sc.Name, len(reply)),
		}
	}

	code, err := reply[0].AsInt64()
	if err != nil {
		return db.ScriptReply{}, &db.Error{Op: db.OpEval, Err: fmt.Errorf("%s: code: %w", sc.Name, err)}
	}
	value, err := reply[1].ToString()
	if err != nil {
		return db.ScriptReply{}, &db.Error{Op: db.OpEval, Err: fmt.Errorf("%s: value: %w", sc.Name, err)}
	}
	return db.ScriptReply{Code: code, Value: value}, nil
}

func (s *Store) lua(sc *db.Script) *rueidis.Lua {
	if l, ok := s.scripts.Load(sc); ok {
		return l.(*rueidis.Lua)
	}
	l, _ := s.scripts.LoadOrStore(sc, rueidis.NewLuaScript(sc.Body))
	return l.(*rueidis.Lua)
}
