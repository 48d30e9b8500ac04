package headless

import (
	"fmt"

	"github.com/spaghettifunk/pneuma/engine/core"
	"github.com/spaghettifunk/pneuma/engine/renderer"
	"github.com/spaghettifunk/pneuma/engine/renderer/metadata"
)

// RenderTargetCreate allocates a render target from config. Colour
// attachments get their own derived, container-held texture named after
// the target; depth and stencil attachments have no readback path and are
// backed by CPU shadow buffers instead.
func (b *Backend) RenderTargetCreate(config *metadata.RenderTargetConfig) (metadata.AssetHandle, error) {
	if config == nil || len(config.Attachments) == 0 {
		return metadata.InvalidAssetHandle, fmt.Errorf("headless: render target config requires at least one attachment")
	}
	if config.Width == 0 || config.Height == 0 {
		return metadata.InvalidAssetHandle, fmt.Errorf("headless: render target %s has zero extent %dx%d", config.Name, config.Width, config.Height)
	}

	target := &metadata.RenderTarget{
		Name:            config.Name,
		Width:           config.Width,
		Height:          config.Height,
		AttachmentCount: uint8(len(config.Attachments)),
		Attachments:     make([]*metadata.RenderTargetAttachment, 0, len(config.Attachments)),
	}

	for _, attachmentConfig := range config.Attachments {
		attachment := &metadata.RenderTargetAttachment{
			RenderTargetAttachmentType: attachmentConfig.RenderTargetAttachmentType,
			Source:                     attachmentConfig.Source,
			Format:                     attachmentConfig.Format,
			LoadOperation:              attachmentConfig.LoadOperation,
			StoreOperation:             attachmentConfig.StoreOperation,
			PresentAfter:               attachmentConfig.PresentAfter,
		}

		switch attachmentConfig.RenderTargetAttachmentType {
		case metadata.RENDER_TARGET_ATTACHMENT_TYPE_COLOUR:
			format := attachmentConfig.Format
			if format == metadata.TextureFormatUnknown {
				format = metadata.TextureFormatRGBA8
			}
			info := &metadata.Texture{
				TextureType:  metadata.TextureType2d,
				Format:       format,
				Width:        config.Width,
				Height:       config.Height,
				LayerCount:   1,
				ChannelCount: uint8(format.BytesPerPixel()),
				Flags:        metadata.TextureFlagIsWriteable | metadata.TextureFlagIsAttachment,
				Name:         core.GenerateResourceName(config.Name),
			}
			textureHandle, err := b.TextureCreateWriteable(info)
			if err != nil {
				b.releaseAttachments(target)
				return metadata.InvalidAssetHandle, err
			}
			attachment.Format = format
			attachment.TextureHandle = textureHandle

		case metadata.RENDER_TARGET_ATTACHMENT_TYPE_DEPTH, metadata.RENDER_TARGET_ATTACHMENT_TYPE_STENCIL:
			format := attachmentConfig.Format
			if format == metadata.TextureFormatUnknown {
				format = metadata.TextureFormatDepth24Stencil8
			}
			attachment.Format = format
			attachment.ShadowBuffer = make([]byte, config.Width*config.Height*format.BytesPerPixel())

		default:
			b.releaseAttachments(target)
			return metadata.InvalidAssetHandle, fmt.Errorf("headless: render target %s has unsupported attachment type 0x%x", config.Name, attachmentConfig.RenderTargetAttachmentType)
		}

		target.Attachments = append(target.Attachments, attachment)
	}

	return b.assets.Store(target, metadata.AssetTypeRenderTarget)
}

func (b *Backend) RenderTargetGet(handle metadata.AssetHandle) *metadata.RenderTarget {
	return renderer.AssetFrom[metadata.RenderTarget](b.assets, handle, metadata.AssetTypeRenderTarget)
}

// RenderTargetDestroy tears down the target and everything it owns. The
// derived attachment textures are destroyed strictly before the target's
// own slot is released, so no window exists in which a stale attachment
// handle resolves against a dead target.
func (b *Backend) RenderTargetDestroy(handle metadata.AssetHandle) {
	target := b.RenderTargetGet(handle)
	if target == nil {
		return
	}
	b.releaseAttachments(target)
	b.assets.Release(handle)
}

func (b *Backend) releaseAttachments(target *metadata.RenderTarget) {
	for _, attachment := range target.Attachments {
		if attachment.TextureHandle != metadata.InvalidAssetHandle {
			b.TextureDestroy(attachment.TextureHandle)
			attachment.TextureHandle = metadata.InvalidAssetHandle
		}
		attachment.ShadowBuffer = nil
	}
}

func (b *Backend) RenderPassCreate(config *metadata.RenderPassConfig) (*metadata.RenderPass, error) {
	if config == nil || config.Name == "" {
		return nil, fmt.Errorf("headless: render pass requires a name")
	}
	if _, exists := b.passes[config.Name]; exists {
		return nil, fmt.Errorf("headless: render pass %s already exists", config.Name)
	}
	pass := &metadata.RenderPass{
		ID:                b.nextPassID,
		RenderArea:        config.RenderArea,
		ClearColour:       config.ClearColour,
		ClearFlags:        config.ClearFlags,
		RenderTargetCount: config.RenderTargetCount,
		Targets:           make([]metadata.AssetHandle, config.RenderTargetCount),
	}
	b.nextPassID++
	b.passes[config.Name] = pass
	return pass, nil
}

func (b *Backend) RenderPassDestroy(pass *metadata.RenderPass) {
	for name, registered := range b.passes {
		if registered == pass {
			delete(b.passes, name)
			return
		}
	}
}

func (b *Backend) RenderPassGet(name string) *metadata.RenderPass {
	return b.passes[name]
}

// RenderPassBegin applies the pass's clear operations to the target's
// attachments. Colour clears write the clear colour into the attachment
// texture; depth and stencil clears zero the shadow buffer.
func (b *Backend) RenderPassBegin(pass *metadata.RenderPass, targetHandle metadata.AssetHandle) error {
	if pass == nil {
		return fmt.Errorf("headless: RenderPassBegin without a pass")
	}
	if b.currentPass != nil {
		return fmt.Errorf("headless: render pass %d begun while pass %d is open", pass.ID, b.currentPass.ID)
	}
	target := b.RenderTargetGet(targetHandle)
	if target == nil {
		return fmt.Errorf("headless: render pass %d begun with invalid target handle %s", pass.ID, targetHandle.String())
	}

	for _, attachment := range target.Attachments {
		switch attachment.RenderTargetAttachmentType {
		case metadata.RENDER_TARGET_ATTACHMENT_TYPE_COLOUR:
			if pass.ClearFlags&metadata.RENDERPASS_CLEAR_COLOUR_BUFFER_FLAG == 0 {
				continue
			}
			if err := b.clearColourAttachment(attachment, pass); err != nil {
				return err
			}
		case metadata.RENDER_TARGET_ATTACHMENT_TYPE_DEPTH, metadata.RENDER_TARGET_ATTACHMENT_TYPE_STENCIL:
			if pass.ClearFlags&(metadata.RENDERPASS_CLEAR_DEPTH_BUFFER_FLAG|metadata.RENDERPASS_CLEAR_STENCIL_BUFFER_FLAG) == 0 {
				continue
			}
			for i := range attachment.ShadowBuffer {
				attachment.ShadowBuffer[i] = 0
			}
		}
	}

	b.currentPass = pass
	return nil
}

func (b *Backend) RenderPassEnd(pass *metadata.RenderPass) error {
	if b.currentPass == nil || b.currentPass != pass {
		return fmt.Errorf("headless: RenderPassEnd without a matching begin")
	}
	b.currentPass = nil
	return nil
}

func (b *Backend) clearColourAttachment(attachment *metadata.RenderTargetAttachment, pass *metadata.RenderPass) error {
	t := renderer.AssetFrom[texture](b.assets, attachment.TextureHandle, metadata.AssetTypeTexture)
	if t == nil {
		return fmt.Errorf("headless: colour attachment texture handle %s is invalid", attachment.TextureHandle.String())
	}
	if attachment.Format != metadata.TextureFormatRGBA8 {
		// Non 8-bit formats are zero cleared; the engine only reads back RGBA8.
		for i := range t.pixels {
			t.pixels[i] = 0
		}
		return nil
	}
	r := colourByte(pass.ClearColour.X)
	g := colourByte(pass.ClearColour.Y)
	bb := colourByte(pass.ClearColour.Z)
	a := colourByte(pass.ClearColour.W)
	for i := 0; i+3 < len(t.pixels); i += 4 {
		t.pixels[i] = r
		t.pixels[i+1] = g
		t.pixels[i+2] = bb
		t.pixels[i+3] = a
	}
	return nil
}

func colourByte(v float32) byte {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(v*255.0 + 0.5)
}
