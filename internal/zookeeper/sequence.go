package zookeeper

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/pkg/errors"
)

// Conn 是 *zk.Conn 中序列号生成需要的方法。
type Conn interface {
	Exists(path string) (bool, *zk.Stat, error)
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
	Delete(path string, version int32) error
}

// Connect 建立 ZooKeeper 会话。
func Connect(servers []string, sessionTimeout time.Duration) (*zk.Conn, error) {
	conn, _, err := zk.Connect(servers, sessionTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "zookeeper connect")
	}
	return conn, nil
}

// Sequence 用持久顺序节点生成跨实例单调递增的序号。
// ZooKeeper 的顺序号来自父节点的 cversion，所以创建后立即删除节点也不会回退。
type Sequence struct {
	conn  Conn
	root  string
	mu    sync.Mutex
	ready map[string]bool
}

// NewSequence root 例如 /discount/allocation_numbers
func NewSequence(conn Conn, root string) *Sequence {
	return &Sequence{
		conn:  conn,
		root:  strings.TrimRight(root, "/"),
		ready: make(map[string]bool),
	}
}

// Next 返回 name 下的下一个序号。
func (s *Sequence) Next(ctx context.Context, name string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	parent := s.root + "/" + name
	if err := s.ensurePath(parent); err != nil {
		return 0, err
	}

	nodePath, err := s.conn.Create(parent+"/n-", nil, zk.FlagSequence, zk.WorldACL(zk.PermAll))
	if err != nil {
		return 0, errors.Wrapf(err, "create sequential node under %s", parent)
	}
	seq, err := parseSequence(nodePath)
	if err != nil {
		return 0, err
	}
	// 序号已经拿到，删除失败只会留下一个空节点
	_ = s.conn.Delete(nodePath, -1)
	return seq, nil
}

func (s *Sequence) ensurePath(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready[path] {
		return nil
	}
	var cur string
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		cur += "/" + part
		exists, _, err := s.conn.Exists(cur)
		if err != nil {
			return errors.Wrapf(err, "check node %s", cur)
		}
		if exists {
			continue
		}
		if _, err := s.conn.Create(cur, nil, 0, zk.WorldACL(zk.PermAll)); err != nil && err != zk.ErrNodeExists {
			return errors.Wrapf(err, "create node %s", cur)
		}
	}
	s.ready[path] = true
	return nil
}

// parseSequence 取出节点名末尾 ZooKeeper 追加的 10 位序号。
func parseSequence(nodePath string) (int64, error) {
	idx := strings.LastIndex(nodePath, "n-")
	if idx < 0 {
		return 0, fmt.Errorf("unexpected sequential node name %q", nodePath)
	}
	return strconv.ParseInt(nodePath[idx+2:], 10, 64)
}
