// internal/storage/file_storage.go
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ErrInvalidName 文件名包含路径分隔符或为空
var ErrInvalidName = errors.New("无效的文件名")

// FileStorage 输出目录的扁平文件存储
type FileStorage struct {
	BaseDir string

	// 文件级别锁 name -> *sync.RWMutex
	fileLocks sync.Map
}

// FileInfo 目录中的一个文件
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// NewFileStorage 创建文件存储服务
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}
	return &FileStorage{BaseDir: baseDir}, nil
}

// 获取文件锁
func (s *FileStorage) getFileLock(name string) *sync.RWMutex {
	value, _ := s.fileLocks.LoadOrStore(name, &sync.RWMutex{})
	return value.(*sync.RWMutex)
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Path 返回文件的完整路径
func (s *FileStorage) Path(name string) string {
	return filepath.Join(s.BaseDir, name)
}

// WriteFile 原子写入文件（临时文件 + rename）
func (s *FileStorage) WriteFile(name string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}
	fullPath := s.Path(name)

	lock := s.getFileLock(name)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(s.BaseDir, 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	tmp, err := os.CreateTemp(s.BaseDir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("保存临时文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("保存临时文件失败: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("设置文件权限失败: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("保存文件失败: %w", err)
	}
	return nil
}

// ReadFile 读取文件
func (s *FileStorage) ReadFile(name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	lock := s.getFileLock(name)
	lock.RLock()
	defer lock.RUnlock()

	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	return data, nil
}

// Remove 删除文件，返回被删除文件的大小
func (s *FileStorage) Remove(name string) (int64, error) {
	if err := validateName(name); err != nil {
		return 0, err
	}

	lock := s.getFileLock(name)
	lock.Lock()
	defer lock.Unlock()

	fullPath := s.Path(name)
	info, err := os.Stat(fullPath)
	if err != nil {
		return 0, fmt.Errorf("文件不存在: %w", err)
	}
	if err := os.Remove(fullPath); err != nil {
		return 0, fmt.Errorf("删除文件失败: %w", err)
	}
	s.fileLocks.Delete(name)
	return info.Size(), nil
}

// Exists 检查文件是否存在
func (s *FileStorage) Exists(name string) bool {
	if validateName(name) != nil {
		return false
	}
	info, err := os.Stat(s.Path(name))
	return err == nil && !info.IsDir()
}

// Stat 返回文件信息
func (s *FileStorage) Stat(name string) (FileInfo, error) {
	if err := validateName(name); err != nil {
		return FileInfo{}, err
	}
	info, err := os.Stat(s.Path(name))
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{Name: name, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// List 列出匹配的普通文件，match 为 nil 时返回全部
func (s *FileStorage) List(match func(name string) bool) ([]FileInfo, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("读取目录失败: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if match != nil && !match(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("读取文件信息失败: %w", err)
		}
		files = append(files, FileInfo{Name: entry.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	return files, nil
}
