package server

import (
	"container/heap"
	"errors"
	"strconv"
)

var (
	ErrIdentityBound = errors.New("identity already bound")
	ErrPeerBound     = errors.New("connection already bound")
)

// Registry 在线连接与玩家身份一一对应。
// 分配的身份是短十进制数，优先复用已释放的最小编号。
// 只归会话协程使用，不支持并发访问
type Registry struct {
	byPeer map[Peer]string
	byID   map[string]Peer
	gens   map[string]uint64
	seq    uint64
	free   freeList
	next   int
}

func NewRegistry() *Registry {
	return &Registry{
		byPeer: make(map[Peer]string),
		byID:   make(map[string]Peer),
		gens:   make(map[string]uint64),
		next:   1,
	}
}

// Assign 返回一个当前未绑定的身份
func (r *Registry) Assign() string {
	for r.free.Len() > 0 {
		id := strconv.Itoa(heap.Pop(&r.free).(int))
		if _, taken := r.byID[id]; !taken {
			return id
		}
	}
	for {
		id := strconv.Itoa(r.next)
		r.next++
		if _, taken := r.byID[id]; !taken {
			return id
		}
	}
}

// Bind 绑定 p 与 id
func (r *Registry) Bind(p Peer, id string) error {
	if _, ok := r.byID[id]; ok {
		return ErrIdentityBound
	}
	if _, ok := r.byPeer[p]; ok {
		return ErrPeerBound
	}
	r.seq++
	r.byPeer[p] = id
	r.byID[id] = p
	r.gens[id] = r.seq
	return nil
}

// Unbind 解绑 p 并返回其身份；
// 由 Assign 分配过的编号可再次分配
func (r *Registry) Unbind(p Peer) (string, bool) {
	id, ok := r.byPeer[p]
	if !ok {
		return "", false
	}
	delete(r.byPeer, p)
	delete(r.byID, id)
	delete(r.gens, id)
	if n, err := strconv.Atoi(id); err == nil && n > 0 && n < r.next && strconv.Itoa(n) == id {
		heap.Push(&r.free, n)
	}
	return id, true
}

// Lookup 返回绑定到 id 的连接
func (r *Registry) Lookup(id string) (Peer, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// Generation 返回 id 当前绑定的序号。每次 Bind 都会换新序号，
// 复用的身份不会与旧绑定相同
func (r *Registry) Generation(id string) (uint64, bool) {
	g, ok := r.gens[id]
	return g, ok
}

// Identity 返回 p 绑定的身份
func (r *Registry) Identity(p Peer) (string, bool) {
	id, ok := r.byPeer[p]
	return id, ok
}

// Peers 返回所有已绑定连接
func (r *Registry) Peers() []Peer {
	out := make([]Peer, 0, len(r.byPeer))
	for p := range r.byPeer {
		out = append(out, p)
	}
	return out
}

func (r *Registry) Len() int { return len(r.byPeer) }

// freeList 已释放编号的小顶堆
type freeList []int

func (f freeList) Len() int           { return len(f) }
func (f freeList) Less(i, j int) bool { return f[i] < f[j] }
func (f freeList) Swap(i, j int)      { f[i], f[j] = f[j], f[i] }
func (f *freeList) Push(x any)        { *f = append(*f, x.(int)) }
func (f *freeList) Pop() any {
	old := *f
	n := len(old)
	x := old[n-1]
	*f = old[:n-1]
	return x
}
