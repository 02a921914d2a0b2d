// internal/services/navigator.go
package services

import "math"

// Navigator 幻灯片翻页状态，越界的翻页请求不生效
type Navigator struct {
	current int
	total   int
}

// NewNavigator 创建从第一张开始的导航器
func NewNavigator(total int) *Navigator {
	if total < 0 {
		total = 0
	}
	return &Navigator{total: total}
}

// Current 当前幻灯片序号
func (n *Navigator) Current() int {
	return n.current
}

// Total 幻灯片总数
func (n *Navigator) Total() int {
	return n.total
}

// Next 前进一张，已在最后一张时返回 false
func (n *Navigator) Next() bool {
	if n.current >= n.total-1 {
		return false
	}
	n.current++
	return true
}

// Previous 后退一张，已在第一张时返回 false
func (n *Navigator) Previous() bool {
	if n.current <= 0 {
		return false
	}
	n.current--
	return true
}

// Seek 按音频播放位置同步当前幻灯片
func (n *Navigator) Seek(currentTime, duration float64) int {
	n.current = SlideAt(currentTime, duration, n.total)
	return n.current
}

// SlideAt 将播放位置按比例映射到幻灯片序号: floor(currentTime / (duration/slideCount))
func SlideAt(currentTime, duration float64, slideCount int) int {
	if slideCount <= 0 || duration <= 0 || currentTime <= 0 {
		return 0
	}
	index := int(math.Floor(currentTime / (duration / float64(slideCount))))
	if index >= slideCount {
		return slideCount - 1
	}
	return index
}
