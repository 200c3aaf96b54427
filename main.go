package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"git.fiblab.net/sim/syncer/v3"
	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/output"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/task"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/utils/config"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/utils/input"
)

var (
	// 分布式模式syncer地址，如果设置为空则激活独立部署模式
	syncerAddr = flag.String("syncer", "", "syncer address (empty means standalone mode), e.g. http://localhost:53001")
	// 模拟任务名，用于日志与数据库输出
	job = flag.String("job", "job0", "the name of the whole simulation task")
	// 本程序监听的RPC地址，设置为空则不提供RPC服务
	grpcAddr = flag.String("listen", "", "RPC listening address (empty means no RPC), e.g. :51102")
	// 配置文件路径
	configPath = flag.String("config", "", "config file path")
	// 配置文件Base64编码后的数据
	configData = flag.String("config-data", "", "config file base64 encoded data")
	// 输出目录，覆盖配置文件中的output.dir
	outputDir = flag.String("output", "", "output dir (overrides output.dir in config)")

	// log
	logLevels = map[string]logrus.Level{
		"trace":    logrus.TraceLevel,
		"debug":    logrus.DebugLevel,
		"info":     logrus.InfoLevel,
		"warn":     logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"critical": logrus.FatalLevel,
		"off":      logrus.PanicLevel,
	}
	logLevel = flag.String("log.level", "info", "日志级别（可选项：trace debug info warn error critical off）")

	log = logrus.WithField("module", "ctm")
)

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	// log: 运行时才修改
	if level, ok := logLevels[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		log.Panicf("log.level must be one of %v", logLevels)
	}
	// 获取配置
	var file []byte
	var err error
	baseDir := "."
	if *configPath != "" {
		file, err = os.ReadFile(*configPath)
		if err != nil {
			log.Panicf("config file load err: %v", err)
		}
		baseDir = filepath.Dir(*configPath)
	} else if *configData != "" {
		file, err = base64.StdEncoding.DecodeString(*configData)
		if err != nil {
			log.Panicf("config data load err: %v", err)
		}
	} else {
		log.Panic("config file or config data must be specified")
	}
	c, err := config.Parse(file)
	if err != nil {
		log.Panicf("%v", err)
	}
	if *outputDir != "" {
		c.Output.Dir = *outputDir
	}
	log.Infof("%+v", c)

	in, err := input.Init(c, baseDir)
	if err != nil {
		log.Panicf("input load err: %v", err)
	}

	if err := checkAddrs(*syncerAddr, *grpcAddr); err != nil {
		log.Panicf("%v", err)
	}
	var sidecar *syncer.Sidecar
	if *grpcAddr != "" {
		sidecar = syncer.NewSidecar(task.SelfName, *grpcAddr, *syncerAddr)
	}
	t, err := task.NewContext(*job, c, in, sidecar, sidecar != nil)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if c.Output.Mongo != nil {
		recorder, err := output.NewMongoRecorder(c.Output.URI, *c.Output.Mongo, *job)
		if err != nil {
			log.Fatalf("%v", err)
		}
		defer func() {
			if err := recorder.Close(); err != nil {
				log.Errorf("close mongo recorder: %v", err)
			}
		}()
		t.AddRecorder(recorder)
		log.Infof("job %s: density series tagged with run_id=%s", *job, recorder.RunID())
	}

	res, err := t.Run()
	if err != nil {
		log.Errorf("%v", err)
		return
	}
	log.Infof("%v", res)

	if err := save(t.RuntimeConfig(), in, res); err != nil {
		log.Errorf("output err: %v", err)
	}
}

// checkAddrs 分布式模式需要本程序监听RPC地址
func checkAddrs(syncerAddr, listenAddr string) error {
	if syncerAddr != "" && listenAddr == "" {
		return fmt.Errorf("syncer %s requires -listen to be set", syncerAddr)
	}
	return nil
}

// save 写入输出目录：配置与输入文件留档、密度CSV、密度图
func save(rc *config.RuntimeConfig, in *input.Input, res *task.Result) error {
	o := rc.All.Output
	if o.Dir == "" {
		log.Info("no output dir, skip saving")
		return nil
	}
	if err := output.PrepareDir(o.Dir); err != nil {
		return err
	}
	if err := output.SaveConfig(o.Dir, rc.All); err != nil {
		return err
	}
	if err := output.CopyFiles(o.Dir, in.Files...); err != nil {
		return err
	}
	if o.CSV {
		if err := output.SaveDensityCSV(filepath.Join(o.Dir, output.DensityFile), res); err != nil {
			return err
		}
	}
	if o.Plot {
		if err := output.SaveHeatmap(filepath.Join(o.Dir, output.HeatmapFile), res); err != nil {
			return err
		}
		if err := output.SaveProfiles(filepath.Join(o.Dir, output.ProfilesFile), res, o.Profiles); err != nil {
			return err
		}
		if err := output.SaveChart(filepath.Join(o.Dir, output.ChartFile), res, output.DefaultChartPoints); err != nil {
			return err
		}
	}
	log.Infof("outputs saved to %s", o.Dir)
	return nil
}
