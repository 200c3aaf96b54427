package task

// Recorder 密度快照的流式输出
// 功能：每个快照产生时被调用一次（含初始状态），用于写入数据库等外部存储
type Recorder interface {
	// Record 记录第step步的快照，t为模拟时间（小时）
	Record(step int, t float64, density []float64) error
	// Close 刷新并关闭
	Close() error
}
