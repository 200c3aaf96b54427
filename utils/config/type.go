package config

// InputPath 指定数据来源的配置（文件系统、MongoDB）
// 功能：定义数据路径，File用于读取输入文件，DB/Col用于MongoDB集合
type InputPath struct {
	DB   string `yaml:"db,omitempty"`   // 数据库名
	Col  string `yaml:"col,omitempty"`  // 集合名
	File string `yaml:"file,omitempty"` // 文件路径，相对路径基于配置文件所在目录
}

// GetDb 获取数据库名
func (p InputPath) GetDb() string {
	return p.DB
}

// GetColl 获取集合名
func (p InputPath) GetColl() string {
	return p.Col
}

// Input 指定模拟器输入文件的配置项
// 功能：参数文件（name=value）与瓶颈表（CSV）
type Input struct {
	Params      *InputPath `yaml:"params,omitempty"`      // 道路参数文件
	Bottlenecks *InputPath `yaml:"bottlenecks,omitempty"` // 瓶颈表
}

// Bottleneck 瓶颈原始记录（物理单位）
// 功能：描述一段时空窗口内的通行能力削减，位置单位km，时间单位min
type Bottleneck struct {
	Start    float64 `yaml:"start"`    // 起点位置(km)
	End      float64 `yaml:"end"`      // 终点位置(km)，与起点相同时表示点状障碍（如信号灯）
	TimeI    float64 `yaml:"time_i"`   // 开始时间(min)
	TimeF    float64 `yaml:"time_f"`   // 结束时间(min)，区间[TimeI, TimeF)
	Strength float64 `yaml:"strength"` // 削减系数，1为完全封闭
}

// TrafficLight 固定周期信号灯
// 功能：在Position处按 红灯->绿灯 的周期循环，红灯期间为完全封闭的点状瓶颈
type TrafficLight struct {
	Position float64 `yaml:"position"`         // 位置(km)
	Red      float64 `yaml:"red"`              // 红灯时长(min)
	Green    float64 `yaml:"green"`            // 绿灯时长(min)
	Offset   float64 `yaml:"offset,omitempty"` // 首个红灯开始时间(min)
}

// Control 模拟器控制配置
// 功能：定义数值检查与并行更新等控制参数
type Control struct {
	DomainTolerance   float64 `yaml:"domain_tolerance,omitempty"`   // 密度越界检查的绝对容差，0表示使用默认相对容差
	ParallelThreshold int     `yaml:"parallel_threshold,omitempty"` // 元胞数达到该值时并行更新，0表示使用默认值，负数表示禁用
}

// Output 输出配置
type Output struct {
	Dir      string     `yaml:"dir,omitempty"`      // 输出目录
	CSV      bool       `yaml:"csv,omitempty"`      // 输出密度时间序列CSV
	Plot     bool       `yaml:"plot,omitempty"`     // 输出密度热力图与剖面图
	Profiles int        `yaml:"profiles,omitempty"` // 剖面图中的时刻数
	URI      string     `yaml:"uri,omitempty"`      // MongoDB连接字符串
	Mongo    *InputPath `yaml:"mongo,omitempty"`    // 密度时间序列写入的MongoDB集合
}

// Config YAML配置文件的根结构
// 功能：定义整个仿真的配置结构
// 说明：Road中的参数覆盖参数文件中的同名参数；Bottlenecks追加在瓶颈表之后
type Config struct {
	Input         Input              `yaml:"input"`                    // 输入
	Road          map[string]float64 `yaml:"road,omitempty"`           // 道路参数（name: value）
	Bottlenecks   []Bottleneck       `yaml:"bottlenecks,omitempty"`    // 瓶颈
	TrafficLights []TrafficLight     `yaml:"traffic_lights,omitempty"` // 信号灯
	Control       Control            `yaml:"control"`                  // 模拟过程控制
	Output        Output             `yaml:"output"`                   // 输出
}
