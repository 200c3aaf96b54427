package input

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/entity"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/utils/config"
)

// Input 输入数据
// 功能：存储仿真所需的所有输入数据
// 说明：Files记录读取过的全部输入文件，供输出目录留档
type Input struct {
	Params        map[string]float64
	Bottlenecks   []config.Bottleneck
	TrafficLights []config.TrafficLight
	Files         []string
}

// Init 读取输入数据
// 功能：根据配置加载参数文件与瓶颈表，并与配置文件中的内联数据合并
// 参数：c-配置对象，baseDir-相对路径的基准目录（通常为配置文件所在目录）
// 返回：加载完成的输入数据
// 算法说明：
// 1. 参数加载：读取参数文件（可选），再以c.Road中的同名参数覆盖
// 2. 瓶颈加载：读取瓶颈表（可选），再追加c.Bottlenecks
// 3. 信号灯：直接使用c.TrafficLights
// 说明：参数的合法性检查由道路模型完成
func Init(c config.Config, baseDir string) (*Input, error) {
	res := &Input{
		Params:        make(map[string]float64),
		Bottlenecks:   make([]config.Bottleneck, 0),
		TrafficLights: append([]config.TrafficLight(nil), c.TrafficLights...),
		Files:         make([]string, 0),
	}

	if c.Input.Params != nil {
		path, err := resolve(c.Input.Params, baseDir)
		if err != nil {
			return nil, err
		}
		params, err := readFile(path, ReadParams)
		if err != nil {
			return nil, fmt.Errorf("read params %s: %w", path, err)
		}
		res.Params = params
		res.Files = append(res.Files, path)
		log.Infof("%d parameters loaded from %s", len(params), path)
	}
	for name, value := range c.Road {
		if old, ok := res.Params[name]; ok && old != value {
			log.Infof("parameter %s=%v overridden by config: %v", name, old, value)
		}
	}
	res.Params = lo.Assign(res.Params, c.Road)

	if c.Input.Bottlenecks != nil {
		path, err := resolve(c.Input.Bottlenecks, baseDir)
		if err != nil {
			return nil, err
		}
		bns, err := readFile(path, ReadBottlenecks)
		if err != nil {
			return nil, fmt.Errorf("read bottlenecks %s: %w", path, err)
		}
		res.Bottlenecks = append(res.Bottlenecks, bns...)
		res.Files = append(res.Files, path)
		log.Infof("%d bottlenecks loaded from %s", len(bns), path)
	}
	res.Bottlenecks = append(res.Bottlenecks, c.Bottlenecks...)
	return res, nil
}

// resolve 将输入路径解析为文件路径，相对路径基于baseDir
func resolve(p *config.InputPath, baseDir string) (string, error) {
	if p.File == "" {
		return "", fmt.Errorf("%w: input from %s.%s is not supported, use file",
			entity.ErrInvalidConfiguration, p.DB, p.Col)
	}
	if filepath.IsAbs(p.File) || baseDir == "" {
		return p.File, nil
	}
	return filepath.Join(baseDir, p.File), nil
}

func readFile[T any](path string, parse func(io.Reader) (T, error)) (res T, err error) {
	f, err := os.Open(path)
	if err != nil {
		return res, err
	}
	defer f.Close()
	return parse(f)
}
