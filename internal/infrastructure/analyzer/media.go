package analyzer

import (
	"debug/pe"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

func imageMetadata(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}
	return map[string]any{
		"format": format,
		"width":  cfg.Width,
		"height": cfg.Height,
	}, nil
}

// peMetadata reads the COFF and optional headers of a Windows executable.
func peMetadata(path string) (map[string]any, error) {
	f, err := pe.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	meta := map[string]any{
		"machine":         fmt.Sprintf("0x%04x", f.FileHeader.Machine),
		"sections":        len(f.Sections),
		"characteristics": fmt.Sprintf("0x%04x", f.FileHeader.Characteristics),
		"timestamp":       f.FileHeader.TimeDateStamp,
	}
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		meta["subsystem"] = oh.Subsystem
		meta["os_version"] = fmt.Sprintf("%d.%d", oh.MajorOperatingSystemVersion, oh.MinorOperatingSystemVersion)
		meta["image_version"] = fmt.Sprintf("%d.%d", oh.MajorImageVersion, oh.MinorImageVersion)
	case *pe.OptionalHeader64:
		meta["subsystem"] = oh.Subsystem
		meta["os_version"] = fmt.Sprintf("%d.%d", oh.MajorOperatingSystemVersion, oh.MinorOperatingSystemVersion)
		meta["image_version"] = fmt.Sprintf("%d.%d", oh.MajorImageVersion, oh.MinorImageVersion)
	}
	return meta, nil
}
