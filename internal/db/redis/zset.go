package redis

import (
	"context"
	"strconv"

	"github.com/kailas-cloud/omnisearch/internal/db"
)

// ZAdd adds a member with the given score.
func (s *Store) ZAdd(ctx context.Context, key string, score float64, member string) error {
	cmd := s.b().Zadd().Key(key).ScoreMember().ScoreMember(score, member).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpZAdd, Key: key, Err: err}
	}
	return nil
}

// ZRangeByScore returns members scored at or above minScore in ascending score order.
func (s *Store) ZRangeByScore(
	ctx context.Context, key string, minScore float64, offset, count int,
) ([]string, error) {
	args := []string{formatNumber(minScore), "+inf", "BYSCORE"}
	if count > 0 {
		args = append(args, "LIMIT", strconv.Itoa(max(0, offset)), strconv.Itoa(count))
	}

	cmd := s.b().Arbitrary("ZRANGE").Keys(key).Args(args...).ReadOnly()
	members, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpZRange, Key: key, Err: err}
	}
	return members, nil
}

// ZRevRange returns up to count members with the highest scores first.
func (s *Store) ZRevRange(ctx context.Context, key string, count int) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}

	cmd := s.b().Arbitrary("ZRANGE").Keys(key).Args("0", strconv.Itoa(count-1), "REV").ReadOnly()
	members, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpZRange, Key: key, Err: err}
	}
	return members, nil
}

// ZRemRangeByScore removes members scored at or below maxScore and returns how many were removed.
func (s *Store) ZRemRangeByScore(ctx context.Context, key string, maxScore float64) (int64, error) {
	cmd := s.b().Zremrangebyscore().Key(key).Min("-inf").Max(formatNumber(maxScore)).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpZRemRangeByScore, Key: key, Err: err}
	}
	return n, nil
}
