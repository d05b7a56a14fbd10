package thumbnail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"

	"github.com/disintegration/imaging"
)

// Fit 将截图从顶部对齐裁剪缩放到 width x height，返回 base64 编码的 PNG
func Fit(screenshot []byte, width, height int) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(screenshot))
	if err != nil {
		return "", fmt.Errorf("decode screenshot: %w", err)
	}

	thumb := imaging.Fill(img, width, height, imaging.Top, imaging.Lanczos)

	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.BestCompression}
	if err := encoder.Encode(&buf, thumb); err != nil {
		return "", fmt.Errorf("encode thumbnail: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
