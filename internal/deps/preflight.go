package deps

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"sprocket/internal/config"
)

// Result reports the outcome of a single environment preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// CheckDirectoryAccess verifies that the directory exists and is
// readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies the filesystem under path has at least minGiB free.
// A zero or negative minimum disables the check and passes.
func CheckFreeSpace(name, path string, minGiB int) Result {
	if minGiB <= 0 {
		return Result{Name: name, Passed: true, Detail: "free space check disabled"}
	}
	_, free, err := statfs(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	required := uint64(minGiB) * 1024 * 1024 * 1024
	if free < required {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%.1f GiB free, %d GiB required)", path, float64(free)/(1024*1024*1024), minGiB)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%.1f GiB free)", path, float64(free)/(1024*1024*1024))}
}

// RunEnvironmentChecks executes the filesystem checks a run depends on. The
// output directory must already exist when this is called.
func RunEnvironmentChecks(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckFreeSpace("Output free space", cfg.Paths.OutputDir, cfg.Paths.MinFreeGiB),
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	return results
}

// FailedChecks returns the names of checks that did not pass.
func FailedChecks(results []Result) []string {
	var failed []string
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result.Name)
		}
	}
	return failed
}

var statfs = realStatfs

func realStatfs(path string) (total, free uint64, err error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total = stat.Blocks * uint64(stat.Bsize)
	free = stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}
