// Package actor 提供最小的 Actor 运行时
//
// 每个 Actor 是独立调度的计算单元：
// • 拥有私有状态和 Peer 注册表（无需锁保护）
// • 只通过控制邮箱接收消息
// • 一个 goroutine 串行执行分发循环
// • 通过 Peer 向其他 Actor 广播控制消息
//
// # 核心组件
//
// [ControlMessage] 是封闭的控制消息集合：[Execute] 执行用户行为，
// [Stop] 终止 Actor，[RegisterPeer] 注册新的 Peer。
//
// [Spawn] 创建并启动 Actor，返回 [Handle]：
//
//	h := actor.Spawn(actor.BehaviorFunc(func(ctx *actor.Context) error {
//	    ctx.Logger().Info("hello")
//	    return nil
//	}))
//	_ = h.Send(ctx, actor.Execute{})
//	_ = h.Send(ctx, actor.Stop{})
//
// [Handle] 只包含两个发送端：控制邮箱和 Peer 注册通道。[Handle.Peer] 返回的
// 发送端可以交给其他 Actor，通过 [Handle.SendPeer] 或 [RegisterPeer] 注册。
//
// [NewMailbox] 创建的 [Sender] 和 [Receiver] 可以单独使用：多生产者、单消费者、
// 单个生产者内 FIFO。
//
// [System] 管理具名 Actor 的登记与关闭，不提供重启或监督。
//
// # 分发循环
//
// 状态：Idle → Dispatching → Idle | Terminated。唯一的阻塞点是等待下一条消息。
// Execute 依次同步调用 [Behavior.Execute] 和 [Behavior.OnReceive]；
// RegisterPeer 追加到 [PeerRegistry]；Stop 使循环退出。
//
// # 错误处理
//
// Stop 之后的发送返回 [ErrMailboxClosed]。广播时单个 Peer 的失败记录为
// [PeerDeliveryError]，不会中断广播。钩子返回错误或 panic 只终止当前 Actor，
// 终止原因可通过 [Handle.Err] 获取（[HookError]）。
//
// # 注意事项
//
// 1. 钩子运行在 Actor 的 goroutine 中，长时间阻塞会饿死该 Actor 的邮箱
// 2. Context 只在钩子执行期间有效
// 3. 广播使用非阻塞发送，Peer 邮箱已满时记为投递失败
// 4. 钩子中可调用 [Context.StopSelf]，自身邮箱已满时也不会阻塞
//
// 完整使用示例请参考 example_test.go 或运行 go doc -all。
package actor
