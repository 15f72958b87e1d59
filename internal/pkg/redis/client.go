// Package redis 提供服务共享的 go-redis 客户端。
package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Client 包装 go-redis 的 UniversalClient，单节点和集群地址都可以。
type Client struct {
	rdb goredis.UniversalClient
}

// NewClient 连接 addrs（逗号分隔）并做一次 PING。
func NewClient(addrs string) (*Client, error) {
	var list []string
	for _, a := range strings.Split(addrs, ",") {
		if a = strings.TrimSpace(a); a != "" {
			list = append(list, a)
		}
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("redis: no address configured")
	}
	rdb := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:       list,
		DialTimeout: 3 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addrs, err)
	}
	return &Client{rdb: rdb}, nil
}

// NewFromUniversal 用已有连接构造客户端，测试时注入。
func NewFromUniversal(rdb goredis.UniversalClient) *Client {
	return &Client{rdb: rdb}
}

func (c *Client) GetClient() goredis.UniversalClient {
	return c.rdb
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
