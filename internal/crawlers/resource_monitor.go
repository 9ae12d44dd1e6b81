package crawlers

import (
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceMonitor 系统资源监控器
// 只做观测: 在后台任务扇出没有上限的情况下,内存紧张时输出警告,不限制并发
type ResourceMonitor struct {
	// 可用内存低于该值(字节)时告警
	memoryThreshold uint64

	// 采样函数,测试中可替换
	sampleMemory func() (*mem.VirtualMemoryStat, error)
	sampleCPU    func() (float64, error)

	mu   sync.RWMutex
	last ResourceSnapshot
}

// ResourceSnapshot 一次资源采样
type ResourceSnapshot struct {
	TotalMemory     uint64
	AvailableMemory uint64
	UsedPercent     float64
	CPUPercent      float64
	HeapAlloc       uint64 // 本进程堆内存
	Goroutines      int
	SampledAt       time.Time
}

// NewResourceMonitor 创建资源监控器
func NewResourceMonitor(memoryThresholdMB int) *ResourceMonitor {
	if memoryThresholdMB < 0 {
		memoryThresholdMB = 0
	}
	return &ResourceMonitor{
		memoryThreshold: uint64(memoryThresholdMB) * 1024 * 1024,
		sampleMemory:    mem.VirtualMemory,
		sampleCPU:       sampleCPUPercent,
	}
}

// sampleCPUPercent 所有核心的平均使用率(100毫秒采样,避免阻塞过久)
func sampleCPUPercent() (float64, error) {
	percentages, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		return 0, err
	}
	if len(percentages) == 0 {
		return 0, nil
	}
	return percentages[0], nil
}

// Sample 采样系统内存、CPU和本进程状态
// 采样失败的项保留为0
func (rm *ResourceMonitor) Sample() ResourceSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	snapshot := ResourceSnapshot{
		HeapAlloc:  memStats.HeapAlloc,
		Goroutines: runtime.NumGoroutine(),
		SampledAt:  time.Now(),
	}

	if vm, err := rm.sampleMemory(); err != nil {
		log.Warn().Err(err).Msg("获取系统内存失败")
	} else {
		snapshot.TotalMemory = vm.Total
		snapshot.AvailableMemory = vm.Available
		snapshot.UsedPercent = vm.UsedPercent
	}

	if usage, err := rm.sampleCPU(); err != nil {
		log.Warn().Err(err).Msg("获取CPU使用率失败")
	} else {
		snapshot.CPUPercent = usage
	}

	rm.mu.Lock()
	rm.last = snapshot
	rm.mu.Unlock()

	return snapshot
}

// Check 采样并在内存紧张且有后台任务运行时告警
// 返回true表示处于内存压力下
func (rm *ResourceMonitor) Check(inFlight int64) bool {
	s := rm.Sample()

	event := log.Debug()
	pressure := rm.memoryThreshold > 0 && s.TotalMemory > 0 &&
		s.AvailableMemory < rm.memoryThreshold && inFlight > 0
	if pressure {
		event = log.Warn()
	}

	event.
		Int64("in_flight", inFlight).
		Float64("mem_available_mb", float64(s.AvailableMemory)/(1024*1024)).
		Float64("mem_used_percent", s.UsedPercent).
		Float64("cpu_percent", s.CPUPercent).
		Float64("heap_alloc_mb", float64(s.HeapAlloc)/(1024*1024)).
		Int("goroutines", s.Goroutines).
		Msg("资源状态")

	return pressure
}

// Last 最近一次采样结果
func (rm *ResourceMonitor) Last() ResourceSnapshot {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.last
}
