package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tsinghua-fib-lab/ctm-sim-oss/utils/config"
	"gopkg.in/yaml.v2"
)

// 输出目录中的文件名
const (
	ConfigFile   = "config.yaml"
	DensityFile  = "density.csv"
	HeatmapFile  = "density.png"
	ProfilesFile = "profiles.png"
)

// PrepareDir 创建输出目录（含父目录）
func PrepareDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("prepare output dir %s: %w", dir, err)
	}
	return nil
}

// CopyFiles 将输入文件复制到输出目录留档，同名文件覆盖
func CopyFiles(dir string, files ...string) error {
	for _, f := range files {
		dst := filepath.Join(dir, filepath.Base(f))
		if err := copyFile(f, dst); err != nil {
			return fmt.Errorf("copy %s to %s: %w", f, dir, err)
		}
		log.Debugf("copied %s to %s", f, dst)
	}
	return nil
}

// SaveConfig 将本次运行的配置写入输出目录
func SaveConfig(dir string, c config.Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ConfigFile), data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
