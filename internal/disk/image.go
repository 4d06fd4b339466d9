// Package disk opens SquashFS image files, locating the filesystem inside
// larger carriers such as firmware blobs and tracking read statistics.
package disk

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// ImageDevice is an os.File wrapped as an io.ReaderAt rebased to the start
// of the SquashFS superblock within the file.
type ImageDevice struct {
	file   *os.File
	size   int64
	offset int64
	stats  *ImageStatistics
}

// ImageStatistics tracks device access statistics.
type ImageStatistics struct {
	detectionTime time.Duration
	offsetMethod  string
	readCalls     int64
	bytesRead     int64
	mu            sync.RWMutex
}

// ImageConfig holds configuration for image handling.
type ImageConfig struct {
	AutoDetectOffset bool  `mapstructure:"auto_detect_offset"`
	DefaultOffset    int64 `mapstructure:"default_offset"`
	ScanLimit        int64 `mapstructure:"scan_limit"`
	ScanAlignment    int64 `mapstructure:"scan_alignment"`
}

// LoadImageConfig loads image configuration using Viper.
func LoadImageConfig() (*ImageConfig, error) {
	viper.SetConfigName("squashfs-config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("../..") // For tests running from subdirectories
	viper.AddConfigPath("$HOME/.squashfs")
	viper.AddConfigPath("/etc/squashfs")

	viper.SetDefault("auto_detect_offset", true)
	viper.SetDefault("default_offset", 0)
	viper.SetDefault("scan_limit", 64*1024*1024)
	viper.SetDefault("scan_alignment", 4096)

	viper.SetEnvPrefix("SQUASHFS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	var config ImageConfig
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// OpenImage opens an image file and locates the superblock within it.
func OpenImage(path string, config *ImageConfig) (*ImageDevice, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat image file: %w", err)
	}

	device := &ImageDevice{
		file:   file,
		size:   stat.Size(),
		offset: config.DefaultOffset,
		stats:  &ImageStatistics{offsetMethod: "configured"},
	}

	if config.AutoDetectOffset {
		start := time.Now()
		offset, method, err := device.detectOffset(config)
		device.stats.detectionTime = time.Since(start)
		if err != nil {
			file.Close()
			return nil, err
		}
		device.offset = offset
		device.stats.offsetMethod = method
	}

	return device, nil
}

// detectOffset finds the superblock magic, first at the configured default
// offset, then by scanning alignment boundaries up to the scan limit.
func (d *ImageDevice) detectOffset(config *ImageConfig) (int64, string, error) {
	if d.magicAt(config.DefaultOffset) {
		return config.DefaultOffset, "default", nil
	}

	align := config.ScanAlignment
	if align <= 0 {
		align = 4096
	}
	limit := config.ScanLimit
	if limit > d.size {
		limit = d.size
	}
	for offset := align; offset < limit; offset += align {
		if d.magicAt(offset) {
			return offset, "scan", nil
		}
	}
	return 0, "", fmt.Errorf("%w: no superblock magic within the first %d bytes of %s",
		types.ErrInvalidSuperblock, limit, d.file.Name())
}

func (d *ImageDevice) magicAt(offset int64) bool {
	var b [4]byte
	if _, err := d.file.ReadAt(b[:], offset); err != nil {
		return false
	}
	return binary.LittleEndian.Uint32(b[:]) == types.SquashfsMagic
}

// ReadAt implements io.ReaderAt relative to the detected superblock offset.
func (d *ImageDevice) ReadAt(p []byte, off int64) (int, error) {
	n, err := d.file.ReadAt(p, d.offset+off)

	d.stats.mu.Lock()
	d.stats.readCalls++
	d.stats.bytesRead += int64(n)
	d.stats.mu.Unlock()

	return n, err
}

// Size returns the byte count available past the superblock offset.
func (d *ImageDevice) Size() int64 {
	return d.size - d.offset
}

// Offset returns the detected byte offset of the superblock in the file.
func (d *ImageDevice) Offset() int64 {
	return d.offset
}

// Close releases the underlying file.
func (d *ImageDevice) Close() error {
	return d.file.Close()
}

// Statistics returns a point-in-time copy of the access counters and how
// the superblock offset was found.
func (d *ImageDevice) Statistics() (readCalls, bytesRead int64, offsetMethod string, detectionTime time.Duration) {
	d.stats.mu.RLock()
	defer d.stats.mu.RUnlock()
	return d.stats.readCalls, d.stats.bytesRead, d.stats.offsetMethod, d.stats.detectionTime
}

var _ io.ReaderAt = (*ImageDevice)(nil)
