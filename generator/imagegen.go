package generator

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"google.golang.org/genai"
)

// imageModelRegistry maps display names to image generation models.
var imageModelRegistry = map[string]string{
	"Imagen 3":           "imagen-3.0-generate-002",
	"Imagen 4":           "imagen-4.0-generate-001",
	"Gemini Flash Image": "gemini-2.5-flash-image",
}

// ListImageModelNames returns the selectable image model display names.
func ListImageModelNames() []string {
	names := make([]string, 0, len(imageModelRegistry))
	for name := range imageModelRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GeneratedImage is one produced blog image.
type GeneratedImage struct {
	Data   []byte `json:"-"`
	Prompt string `json:"prompt"`
}

// Base64 returns the PNG bytes encoded for JSON transport.
func (g GeneratedImage) Base64() string {
	return base64.StdEncoding.EncodeToString(g.Data)
}

// ImageGenerator produces topic-matched blog images through the Google
// GenAI image models.
type ImageGenerator struct {
	client *genai.Client
}

func NewImageGenerator(ctx context.Context, apiKey string) (*ImageGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key missing")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating genai client")
	}
	return &ImageGenerator{client: client}, nil
}

// buildImagePrompts derives up to 3 prompts from the topic: thumbnail, body
// illustration, closing visual.
func buildImagePrompts(topic string, numImages int) []string {
	prompts := []string{
		fmt.Sprintf("Blog thumbnail image about '%s'. "+
			"Clean, modern Korean blog style. Soft pastel colors, "+
			"warm lighting, professional composition. "+
			"No text or watermarks.", topic),
	}
	if numImages >= 2 {
		prompts = append(prompts, fmt.Sprintf("Illustrative photo for a blog post about '%s'. "+
			"Warm, friendly atmosphere. Suitable for Korean education blog. "+
			"Natural, authentic feel. No text overlay.", topic))
	}
	if numImages >= 3 {
		prompts = append(prompts, fmt.Sprintf("Supporting visual for Korean blog about '%s'. "+
			"Concept illustration or flat design style. "+
			"Minimalist, clean aesthetic. No text.", topic))
	}
	if numImages < len(prompts) {
		prompts = prompts[:numImages]
	}
	return prompts
}

// GenerateBlogImages renders numImages (1..4) images for the topic. model is
// a display name from the registry or a raw model id.
func (ig *ImageGenerator) GenerateBlogImages(ctx context.Context, topic string, numImages int, model string) ([]GeneratedImage, error) {
	if numImages < 1 {
		numImages = 1
	}
	if numImages > 4 {
		numImages = 4
	}
	modelID := model
	if resolved, ok := imageModelRegistry[model]; ok {
		modelID = resolved
	}

	prompts := buildImagePrompts(topic, numImages)
	images := make([]GeneratedImage, 0, numImages)
	for _, prompt := range prompts {
		resp, err := ig.client.Models.GenerateImages(ctx, modelID, prompt, &genai.GenerateImagesConfig{
			NumberOfImages: 1,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "generating image with %s", modelID)
		}
		if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
			return nil, errors.New("image model returned no image")
		}
		images = append(images, GeneratedImage{
			Data:   resp.GeneratedImages[0].Image.ImageBytes,
			Prompt: prompt,
		})
	}
	return images, nil
}
