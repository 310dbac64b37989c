package server

import "time"

// after 在 d 之后把 msg 投递到会话收件箱。
// 定时器不直接改会话状态，事件和其他消息一样按到达顺序处理
func (s *Session) after(d time.Duration, msg any) *time.Timer {
	return time.AfterFunc(d, func() {
		_ = s.post(msg)
	})
}

// scheduleHit 延迟 HitDelay 后为 attacker 做命中判定，
// 判定基于定时器触发时的世界。
// 任务绑定攻击者当前的绑定序号，身份被释放后转给他人时不会继承
func (s *Session) scheduleHit(attacker string) {
	gen, ok := s.registry.Generation(attacker)
	if !ok {
		return
	}
	s.metrics.IncAttackScheduled()
	s.after(s.cfg.HitDelay(), hitDue{attacker: attacker, gen: gen})
}
