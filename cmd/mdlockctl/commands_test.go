package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestRunAcquireMemory(t *testing.T) {
	code := run([]string{"mdlockctl", "-b", "memory", "acquire", "res-1"})
	if code != 0 {
		t.Errorf("acquire on memory backend: exit code = %d, want 0", code)
	}
}

func TestRunAcquireNoWait(t *testing.T) {
	// memory 后端每次运行是新进程内状态，no-wait 获取必然成功
	code := run([]string{"mdlockctl", "-b", "memory", "acquire", "--no-wait", "res-1"})
	if code != 0 {
		t.Errorf("acquire --no-wait: exit code = %d, want 0", code)
	}
}

func TestRunProbeMemory(t *testing.T) {
	code := run([]string{"mdlockctl", "-b", "memory", "probe", "res-1"})
	if code != 0 {
		t.Errorf("probe on free resource: exit code = %d, want 0", code)
	}
}

func TestRunMissingResource(t *testing.T) {
	code := run([]string{"mdlockctl", "-b", "memory", "acquire"})
	if code != 2 {
		t.Errorf("acquire without resource: exit code = %d, want 2", code)
	}
}

func TestRunUnknownBackend(t *testing.T) {
	code := run([]string{"mdlockctl", "-b", "zookeeper", "probe", "res-1"})
	if code != 2 {
		t.Errorf("unknown backend: exit code = %d, want 2", code)
	}
}

func TestRunInitRequiresMongo(t *testing.T) {
	code := run([]string{"mdlockctl", "-b", "memory", "init"})
	if code != 2 {
		t.Errorf("init on memory backend: exit code = %d, want 2", code)
	}
}

func TestRunConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock.yaml")
	content := "backend: memory\nkey_prefix: \"job:\"\nexpiry: 10s\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	code := run([]string{"mdlockctl", "-c", path, "acquire", "res-1"})
	if code != 0 {
		t.Errorf("acquire with config file: exit code = %d, want 0", code)
	}
}

func TestRunConfigFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock.yaml")
	// mongo 后端缺少必填连接参数
	if err := os.WriteFile(path, []byte("backend: mongo\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	code := run([]string{"mdlockctl", "-c", path, "probe", "res-1"})
	if code != 2 {
		t.Errorf("invalid config: exit code = %d, want 2", code)
	}
}

func TestRunConfigFileMissing(t *testing.T) {
	code := run([]string{"mdlockctl", "-c", filepath.Join(t.TempDir(), "absent.yaml"), "probe", "res-1"})
	if code != 1 {
		t.Errorf("missing config file: exit code = %d, want 1", code)
	}
}

func TestCreateCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range createCommands() {
		names[cmd.Name] = true
	}

	for _, name := range []string{"acquire", "probe", "init"} {
		if !names[name] {
			t.Errorf("missing command %q", name)
		}
	}
}

func TestUsageError(t *testing.T) {
	err := &usageError{msg: "test error"}
	if err.Error() != "test error" {
		t.Errorf("usageError.Error() = %q, want %q", err.Error(), "test error")
	}

	var target *usageError
	if !errors.As(err, &target) {
		t.Error("errors.As failed for *usageError")
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("stderr text", func(t *testing.T) {
		logger := newLogger("", false)
		if logger == nil {
			t.Fatal("newLogger returned nil")
		}
	})

	t.Run("file json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mdlockctl.log")
		logger := newLogger(path, true)
		logger.Info("probe", "resource", "res-1")

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("log file not written: %v", err)
		}
		if len(data) == 0 {
			t.Error("log file is empty")
		}
	})
}
