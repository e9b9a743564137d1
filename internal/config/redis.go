package config

// Redis backs three optional concerns: the room-search result cache,
// the browse response cache and the rate limiter.  None of them is
// load-bearing, so a failed connection at startup yields a nil client
// and the callers degrade to pass-through behaviour.

import (
    "context"
    "crypto/tls"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
)

// NewRedisClient builds a Redis client from the environment:
//
//    REDIS_HOST / REDIS_PORT – server address as separate parts
//    REDIS_ADDR              – host:port shorthand (host/port win when both are set)
//    REDIS_PASSWORD          – optional password
//    REDIS_DB                – database number, default 0
//    REDIS_TLS               – "true" or "1" enables TLS
//
// The connection is verified with a short ping; nil is returned on any
// failure so the caller can run without Redis.
func NewRedisClient() *redis.Client {
    addr := os.Getenv("REDIS_ADDR")
    if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
        addr = host + ":" + port
    }
    if addr == "" {
        addr = "localhost:6379"
    }
    dbNum := 0
    if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
        if n, err := strconv.Atoi(dbStr); err == nil {
            dbNum = n
        }
    }
    var tlsConf *tls.Config
    if v := os.Getenv("REDIS_TLS"); strings.EqualFold(v, "true") || v == "1" {
        tlsConf = &tls.Config{InsecureSkipVerify: true}
    }
    client := redis.NewClient(&redis.Options{
        Addr:      addr,
        Password:  os.Getenv("REDIS_PASSWORD"),
        DB:        dbNum,
        TLSConfig: tlsConf,
    })
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        return nil
    }
    return client
}
