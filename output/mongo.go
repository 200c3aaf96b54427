package output

import (
	"context"
	"fmt"

	"git.fiblab.net/general/common/v2/mongoutil"
	"github.com/google/uuid"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/utils/config"
	"go.mongodb.org/mongo-driver/mongo"
)

const defaultBatchSize = 100 // 每次InsertMany写入的快照数

// snapshotDoc 密度快照在MongoDB中的文档格式
type snapshotDoc struct {
	Job     string    `bson:"job"`
	RunID   string    `bson:"run_id"` // 同一任务多次运行时区分批次
	Step    int       `bson:"step"`
	T       float64   `bson:"t"` // 模拟时间（秒）
	Density []float64 `bson:"density"`
}

// MongoRecorder 将密度快照写入MongoDB
// 功能：实现task.Recorder，按批次调用InsertMany
type MongoRecorder struct {
	client *mongo.Client
	coll   *mongo.Collection
	job    string
	runID  string

	batch     []any
	batchSize int
}

// NewMongoRecorder 连接MongoDB并创建写入器
// 参数：uri-连接字符串，path-写入的db与集合，job-任务名（写入每个文档）
func NewMongoRecorder(uri string, path config.InputPath, job string) (*MongoRecorder, error) {
	if uri == "" || path.DB == "" || path.Col == "" {
		return nil, fmt.Errorf("mongo output needs uri, db and col, got uri=%q %s.%s", uri, path.DB, path.Col)
	}
	client := mongoutil.NewClient(uri)
	runID := uuid.NewString()
	log.Infof("write density series to %s.%s (run_id=%s)", path.DB, path.Col, runID)
	return &MongoRecorder{
		client:    client,
		coll:      mongoutil.GetMongoColl(client, path),
		job:       job,
		runID:     runID,
		batch:     make([]any, 0, defaultBatchSize),
		batchSize: defaultBatchSize,
	}, nil
}

// Record 缓存一个快照，缓存满时写入数据库
func (m *MongoRecorder) Record(step int, t float64, density []float64) error {
	m.batch = append(m.batch, snapshotDoc{
		Job:     m.job,
		RunID:   m.runID,
		Step:    step,
		T:       t * 3600,
		Density: append([]float64(nil), density...),
	})
	if len(m.batch) >= m.batchSize {
		return m.flush()
	}
	return nil
}

func (m *MongoRecorder) flush() error {
	if len(m.batch) == 0 {
		return nil
	}
	if _, err := m.coll.InsertMany(context.Background(), m.batch); err != nil {
		return fmt.Errorf("insert %d snapshots: %w", len(m.batch), err)
	}
	log.Debugf("%d snapshots inserted", len(m.batch))
	m.batch = m.batch[:0]
	return nil
}

// RunID 本次运行写入文档的run_id
func (m *MongoRecorder) RunID() string {
	return m.runID
}

// Close 写入剩余快照并断开连接
func (m *MongoRecorder) Close() error {
	err := m.flush()
	if dErr := m.client.Disconnect(context.Background()); err == nil {
		err = dErr
	}
	return err
}
