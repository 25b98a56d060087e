package loader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-vignette/common"
)

// gltfMaterialExtractorImpl is the implementation of the gltfMaterialExtractor interface.
type gltfMaterialExtractorImpl struct {
	parser gltfParser
}

// gltfMaterialExtractor converts glTF PBR materials into common.ImportedMaterial. Only the base
// color factor and base color texture are carried; the mesh shader is lambert only.
type gltfMaterialExtractor interface {
	// ExtractAllMaterials extracts every material of the document in order.
	//
	// Returns:
	//   - []common.ImportedMaterial: the materials
	//   - error: error if a referenced texture cannot be read
	ExtractAllMaterials() ([]common.ImportedMaterial, error)
}

var _ gltfMaterialExtractor = &gltfMaterialExtractorImpl{}

// newGLTFMaterialExtractor creates a new material extractor for a parsed document.
func newGLTFMaterialExtractor(parser gltfParser) gltfMaterialExtractor {
	return &gltfMaterialExtractorImpl{parser: parser}
}

func (e *gltfMaterialExtractorImpl) ExtractAllMaterials() ([]common.ImportedMaterial, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	out := make([]common.ImportedMaterial, len(doc.Materials))
	for i := range doc.Materials {
		m := &doc.Materials[i]
		mat := common.ImportedMaterial{Name: m.Name, BaseColor: common.White}
		if mat.Name == "" {
			mat.Name = fmt.Sprintf("material_%d", i)
		}

		if pbr := m.PbrMetallicRoughness; pbr != nil {
			if pbr.BaseColorFactor != nil {
				mat.BaseColor = common.Color(*pbr.BaseColorFactor)
			}
			if pbr.BaseColorTexture != nil {
				tex, err := e.loadTexture(pbr.BaseColorTexture.Index)
				if err != nil {
					return nil, fmt.Errorf("material %d: %w", i, err)
				}
				mat.DiffuseTexture = tex
			}
		}
		out[i] = mat
	}
	return out, nil
}

// loadTexture resolves a texture's image from a buffer view or an embedded data URI.
func (e *gltfMaterialExtractorImpl) loadTexture(textureIndex int) (*common.ImportedTexture, error) {
	doc := e.parser.Document()
	if textureIndex < 0 || textureIndex >= len(doc.Textures) {
		return nil, fmt.Errorf("texture index %d out of range", textureIndex)
	}
	src := doc.Textures[textureIndex].Source
	if src == nil || *src < 0 || *src >= len(doc.Images) {
		return nil, fmt.Errorf("texture %d has no valid image source", textureIndex)
	}
	img := &doc.Images[*src]

	tex := &common.ImportedTexture{Name: img.Name, MimeType: img.MimeType}
	if tex.Name == "" {
		tex.Name = fmt.Sprintf("image_%d", *src)
	}

	switch {
	case img.BufferView != nil:
		data, err := e.parser.BufferViewBytes(*img.BufferView)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", *src, err)
		}
		tex.Data = data
	case strings.HasPrefix(img.URI, "data:"):
		data, err := decodeDataURI(img.URI)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", *src, err)
		}
		tex.Data = data
		if tex.MimeType == "" {
			tex.MimeType = strings.TrimSuffix(strings.SplitN(img.URI[5:], ",", 2)[0], ";base64")
		}
	default:
		return nil, fmt.Errorf("image %d: external URI %q is not supported in a bundle", *src, img.URI)
	}
	return tex, nil
}
