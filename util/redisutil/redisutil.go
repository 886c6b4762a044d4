// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE

package redisutil

import (
	"github.com/redis/go-redis/v9"
)

// RedisClientFromURL creates a new Redis client based on the provided
// URL. An empty URL yields a nil client, meaning Redis is disabled.
func RedisClientFromURL(url string) (redis.UniversalClient, error) {
	if url == "" {
		return nil, nil
	}
	redisOptions, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(redisOptions), nil
}
