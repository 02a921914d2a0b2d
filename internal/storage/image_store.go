// internal/storage/image_store.go
package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Corphon/LessonReel/internal/models"
	"github.com/Corphon/LessonReel/internal/utils"
)

// 缓存键模式
const (
	KeyByPosition = "position" // hash + 幻灯片序号
	KeyByContent  = "content"  // 仅 hash
)

// SlideImagePrefix 幻灯片图片文件名前缀
const SlideImagePrefix = "slide_"

var slideImageExts = map[string]bool{".jpg": true, ".svg": true, ".png": true}

// IsSlideImage 文件名是否为幻灯片图片
func IsSlideImage(name string) bool {
	return strings.HasPrefix(name, SlideImagePrefix) && slideImageExts[strings.ToLower(filepath.Ext(name))]
}

type imageRecord struct {
	image models.CachedImage
	key   string
	pins  int
}

// ImageStore 内容寻址的图片索引，与磁盘文件共同维护
// 索引是唯一的事实来源：清理删除文件时同时移除索引项
type ImageStore struct {
	files *FileStorage
	mode  string

	mu     sync.Mutex
	index  map[string]*imageRecord // key -> record
	byName map[string]string       // 文件名 -> key

	keyLocks sync.Map // key -> *sync.Mutex
}

// NewImageStore 创建图片索引
func NewImageStore(files *FileStorage, mode string) *ImageStore {
	if mode != KeyByContent {
		mode = KeyByPosition
	}
	return &ImageStore{
		files:  files,
		mode:   mode,
		index:  make(map[string]*imageRecord),
		byName: make(map[string]string),
	}
}

// Mode 返回缓存键模式
func (s *ImageStore) Mode() string {
	return s.mode
}

func (s *ImageStore) cacheKey(hash string, index int) string {
	if s.mode == KeyByContent {
		return hash
	}
	return fmt.Sprintf("%s_%d", hash, index)
}

func (s *ImageStore) keyLock(key string) *sync.Mutex {
	v, _ := s.keyLocks.LoadOrStore(key, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// SlideImageName 返回幻灯片图片文件名
func SlideImageName(index int, hash string, format models.ImageFormat) string {
	return fmt.Sprintf("%s%d_%s.%s", SlideImagePrefix, index, hash, format.Extension())
}

// Put 保存图片字节并返回被固定的缓存项，调用方用完后需 Release
// 同一键在进程内至多写入一次；written 表示本次是否写入了磁盘
func (s *ImageStore) Put(data []byte, index int, format models.ImageFormat) (img models.CachedImage, written bool, err error) {
	if len(data) == 0 {
		return models.CachedImage{}, false, errors.New("图片数据为空")
	}
	hash := utils.ContentDigest(data)
	key := s.cacheKey(hash, index)

	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	rec, ok := s.index[key]
	if ok && s.files.Exists(filepath.Base(rec.image.FilePath)) {
		rec.pins++
		img = rec.image
		s.mu.Unlock()
		return img, false, nil
	}
	if ok {
		// 文件在索引之外被删除，作废该项后重写
		delete(s.byName, filepath.Base(rec.image.FilePath))
		delete(s.index, key)
	}
	s.mu.Unlock()

	name := SlideImageName(index, hash, format)
	if err := s.files.WriteFile(name, data); err != nil {
		return models.CachedImage{}, false, err
	}

	img = models.CachedImage{
		Hash:     hash,
		Index:    index,
		FilePath: s.files.Path(name),
		Format:   format,
		Size:     int64(len(data)),
		StoredAt: time.Now(),
	}

	s.mu.Lock()
	s.index[key] = &imageRecord{image: img, key: key, pins: 1}
	s.byName[name] = key
	s.mu.Unlock()

	return img, true, nil
}

// Lookup 按内容与序号查询缓存项
func (s *ImageStore) Lookup(data []byte, index int) (models.CachedImage, bool) {
	key := s.cacheKey(utils.ContentDigest(data), index)
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.index[key]
	if !ok {
		return models.CachedImage{}, false
	}
	return rec.image, true
}

// Release 解除 Put 时的固定
func (s *ImageStore) Release(images ...models.CachedImage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, img := range images {
		rec, ok := s.index[s.cacheKey(img.Hash, img.Index)]
		if ok && rec.pins > 0 && rec.image.FilePath == img.FilePath {
			rec.pins--
		}
	}
}

// Len 返回索引项数量
func (s *ImageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

// Clear 清空未被固定的索引项，不删除磁盘文件，返回清除的数量
func (s *ImageStore) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cleared := 0
	for key, rec := range s.index {
		if rec.pins > 0 {
			continue
		}
		delete(s.byName, filepath.Base(rec.image.FilePath))
		delete(s.index, key)
		cleared++
	}
	return cleared
}

// Sweep 删除修改时间早于 maxAge 的幻灯片图片，并同步移除索引项
// 正在被使用（已固定）的图片会被跳过
func (s *ImageStore) Sweep(maxAge time.Duration) (models.SweepResult, error) {
	var result models.SweepResult

	files, err := s.files.List(IsSlideImage)
	if err != nil {
		return result, err
	}

	cutoff := time.Now().Add(-maxAge)
	var errs []error
	for _, f := range files {
		if !f.ModTime.Before(cutoff) {
			continue
		}

		s.mu.Lock()
		key, indexed := s.byName[f.Name]
		s.mu.Unlock()

		if !indexed {
			// 上一个进程遗留的文件
			size, err := s.files.Remove(f.Name)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			result.CleanedCount++
			result.TotalSize += size
			continue
		}

		removed, size, err := s.evict(key, f.Name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if removed {
			result.CleanedCount++
			result.TotalSize += size
		}
	}

	return result, errors.Join(errs...)
}

// evict 在键锁内删除文件并移除索引项
func (s *ImageStore) evict(key, name string) (bool, int64, error) {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	rec, ok := s.index[key]
	if ok && rec.pins > 0 {
		s.mu.Unlock()
		return false, 0, nil
	}
	s.mu.Unlock()

	size, err := s.files.Remove(name)
	if err != nil {
		return false, 0, err
	}

	s.mu.Lock()
	if ok && filepath.Base(rec.image.FilePath) == name {
		delete(s.index, key)
	}
	delete(s.byName, name)
	s.mu.Unlock()
	return true, size, nil
}

// Stats 统计输出目录中的幻灯片图片，按时间倒序
func (s *ImageStore) Stats() (models.ImageStats, error) {
	files, err := s.files.List(IsSlideImage)
	if err != nil {
		return models.ImageStats{}, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})

	stats := models.ImageStats{Files: make([]models.ImageFileInfo, 0, len(files))}
	for _, f := range files {
		stats.TotalFiles++
		stats.TotalSize += f.Size
		stats.Files = append(stats.Files, models.ImageFileInfo{Name: f.Name, Size: f.Size, Created: f.ModTime})
	}
	stats.TotalSizeMB = fmt.Sprintf("%.2f", float64(stats.TotalSize)/1024/1024)
	return stats, nil
}
