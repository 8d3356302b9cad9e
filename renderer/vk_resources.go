package renderer

import (
	"image"
	"log"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"neilpa.me/go-stbi"

	"github.com/edeleiter/vulkanmon/common"
	"github.com/edeleiter/vulkanmon/model"
)

// ResourceProvisioner owns the descriptor-facing GPU resources: the set layout, one uniform
// buffer per frame in flight, the texture triple (image, view, sampler), the depth attachment
// and the descriptor pool and sets tying them together. Binding slots are fixed: binding 0 is
// the uniform buffer seen by the vertex stage, binding 1 the combined image sampler seen by
// the fragment stage. Any creation failure here is fatal, the caller unwinds bootstrap.
type ResourceProvisioner struct {
	dc             *common.Device
	cmdPool        vk.CommandPool
	framesInFlight int

	SetLayout vk.DescriptorSetLayout

	uniformBuffers []*common.Buffer
	uniformMapped  []unsafe.Pointer

	textureImage     vk.Image
	textureImageMem  vk.DeviceMemory
	textureImageView vk.ImageView
	textureSampler   vk.Sampler

	depthImage     vk.Image
	depthImageMem  vk.DeviceMemory
	DepthImageView vk.ImageView
	depthFormat    vk.Format

	descriptorPool vk.DescriptorPool
	descriptorSets []vk.DescriptorSet
}

// NewResourceProvisioner prepares a provisioner bound to the device. The command pool used for
// staging transfers is assigned once bootstrap has created it, before any upload runs.
func NewResourceProvisioner(dc *common.Device, framesInFlight int) *ResourceProvisioner {
	return &ResourceProvisioner{
		dc:             dc,
		framesInFlight: framesInFlight,
	}
}

func (r *ResourceProvisioner) CreateDescriptorSetLayout() error {
	uboLayoutBinding := vk.DescriptorSetLayoutBinding{
		Binding:            0, // <- binding index in vert shader
		DescriptorType:     vk.DescriptorTypeUniformBuffer,
		DescriptorCount:    1,
		StageFlags:         vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		PImmutableSamplers: nil,
	}
	textureSamplerLayoutBinding := vk.DescriptorSetLayoutBinding{
		Binding:            1, // <- binding index in frag shader
		DescriptorType:     vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount:    1,
		StageFlags:         vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		PImmutableSamplers: nil,
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		PNext:        nil,
		Flags:        0,
		BindingCount: 2,
		PBindings:    []vk.DescriptorSetLayoutBinding{uboLayoutBinding, textureSamplerLayoutBinding},
	}
	dsl, err := common.VKCreateDescriptorSetLayout(r.dc.D, &layoutInfo, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create descriptor set layout")
	}
	r.SetLayout = dsl
	log.Printf("Descriptor set layout created successfully!")
	return nil
}

// CreateUniformBuffers allocates one host-visible uniform buffer per frame in flight and keeps
// each persistently mapped. Per-frame buffers mean a frame's matrix write never races the GPU
// reads of the previous frame.
func (r *ResourceProvisioner) CreateUniformBuffers() error {
	uboBufSize := vk.DeviceSize(model.SizeOfUbo())
	memProps := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)

	r.uniformBuffers = make([]*common.Buffer, r.framesInFlight)
	r.uniformMapped = make([]unsafe.Pointer, r.framesInFlight)
	for i := 0; i < r.framesInFlight; i++ {
		uboBuf, err := common.CreateBuffer(
			r.dc,
			uboBufSize,
			vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
			memProps,
		)
		if err != nil {
			return errors.Wrapf(err, "failed to create uniform buffer [%d]", i)
		}
		r.uniformBuffers[i] = uboBuf
		pData, err := common.VkMapMemory(r.dc.D, uboBuf.DeviceMem, 0, uboBufSize, 0)
		if err != nil {
			return errors.Wrapf(err, "failed to map uniform buffer [%d]", i)
		}
		r.uniformMapped[i] = pData
	}
	log.Printf("Uniform buffer created successfully!")
	return nil
}

// UpdateUniforms writes the frame's matrices into the mapped uniform buffer for the given
// frame-in-flight slot. The memory is host coherent, no flush is needed.
func (r *ResourceProvisioner) UpdateUniforms(frameIdx int32, ubo *model.UniformBufferObject) {
	vk.Memcopy(r.uniformMapped[frameIdx], ubo.Bytes())
}

func (r *ResourceProvisioner) DescriptorSet(frameIdx int32) vk.DescriptorSet {
	return r.descriptorSets[frameIdx]
}

// CreateTexture uploads the texture at path into a device-local sampled image: decode, staging
// buffer, layout transition to transfer-dst, copy, transition to shader-read-only, then view
// and sampler. A missing or unreadable file falls back to a generated checkerboard so the
// renderer can come up on a bare checkout.
func (r *ResourceProvisioner) CreateTexture(path string) error {
	pix, w, h := loadTexturePixels(path)
	imgSize := vk.DeviceSize(len(pix))
	log.Printf("Loaded image %s (w: %dp, h: %dp) %d Byte", path, w, h, imgSize)

	stgBuf, err := common.CreateBuffer(
		r.dc,
		imgSize,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create texture staging buffer")
	}
	defer common.DestroyBuffer(r.dc, stgBuf)

	pData, err := common.VkMapMemory(r.dc.D, stgBuf.DeviceMem, 0, imgSize, 0)
	if err != nil {
		return errors.Wrap(err, "failed to map texture staging buffer")
	}
	vk.Memcopy(pData, pix)
	vk.UnmapMemory(r.dc.D, stgBuf.DeviceMem)

	texImg, texMem, err := common.CreateImage(
		r.dc,
		uint32(w),
		uint32(h),
		vk.FormatR8g8b8a8Srgb,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageTransferDstBit|vk.ImageUsageSampledBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create texture image")
	}
	r.textureImage = texImg
	r.textureImageMem = texMem

	if err := r.transitionImageLayout(texImg, vk.FormatR8g8b8a8Srgb, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
		return err
	}
	if err := r.copyBufferToImage(stgBuf.Handle, texImg, uint32(w), uint32(h)); err != nil {
		return err
	}
	if err := r.transitionImageLayout(texImg, vk.FormatR8g8b8a8Srgb, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
		return err
	}
	log.Printf("Texture image created successfully!")

	texView, err := common.CreateImageViewDC(r.dc, texImg, vk.FormatR8g8b8a8Srgb, vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		return errors.Wrap(err, "failed to create texture image view")
	}
	r.textureImageView = texView
	log.Printf("Texture image view created successfully!")

	return r.createTextureSampler()
}

func (r *ResourceProvisioner) createTextureSampler() error {
	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		PNext:                   nil,
		Flags:                   0,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		MipLodBias:              0.0,
		AnisotropyEnable:        vk.True,
		MaxAnisotropy:           r.dc.PdProps.Limits.MaxSamplerAnisotropy,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MinLod:                  0.0,
		MaxLod:                  0.0,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
	}
	sampler, err := common.VkCreateSampler(r.dc.D, &samplerInfo, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create texture sampler")
	}
	r.textureSampler = sampler
	log.Printf("Texture sampler created successfully!")
	return nil
}

// loadTexturePixels decodes path to RGBA pixels. On any decode failure it returns a generated
// checkerboard instead of failing, textures are cosmetic at this stage.
func loadTexturePixels(path string) ([]byte, int, int) {
	img, err := stbi.Load(path)
	if err != nil {
		log.Printf("Failed to load %s, using generated checkerboard: %v", path, err)
		fallback := checkerboardRGBA(256, 256, 32)
		return fallback.Pix, 256, 256
	}
	return img.Pix, img.Rect.Dx(), img.Rect.Dy()
}

// checkerboardRGBA builds a two-tone checker pattern with square tiles of the given size.
func checkerboardRGBA(w int, h int, tile int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(x, y)
			var shade byte = 0x30
			if ((x/tile)+(y/tile))%2 == 0 {
				shade = 0xdd
			}
			img.Pix[i+0] = shade
			img.Pix[i+1] = shade
			img.Pix[i+2] = shade
			img.Pix[i+3] = 0xff
		}
	}
	return img
}

func (r *ResourceProvisioner) CreateDepthResources(extent vk.Extent2D) error {
	dFormat, err := r.findDepthFormat()
	if err != nil {
		return err
	}
	dImg, dImgMem, err := common.CreateImage(
		r.dc,
		extent.Width,
		extent.Height,
		dFormat,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create depth image")
	}
	dImgView, err := common.CreateImageViewDC(r.dc, dImg, dFormat, vk.ImageAspectFlags(vk.ImageAspectDepthBit))
	if err != nil {
		vk.DestroyImage(r.dc.D, dImg, nil)
		vk.FreeMemory(r.dc.D, dImgMem, nil)
		return errors.Wrap(err, "failed to create depth image view")
	}
	r.depthImage = dImg
	r.depthImageMem = dImgMem
	r.DepthImageView = dImgView
	r.depthFormat = dFormat

	if err := r.transitionImageLayout(r.depthImage, dFormat, vk.ImageLayoutUndefined, vk.ImageLayoutDepthStencilAttachmentOptimal); err != nil {
		return err
	}
	log.Printf("Depth buffer created successfully!")
	return nil
}

// DestroyDepthResources drops the depth attachment on its own so swap chain recreation can
// rebuild it at the new extent.
func (r *ResourceProvisioner) DestroyDepthResources() {
	vk.DestroyImageView(r.dc.D, r.DepthImageView, nil)
	vk.DestroyImage(r.dc.D, r.depthImage, nil)
	vk.FreeMemory(r.dc.D, r.depthImageMem, nil)
	r.DepthImageView = vk.NullImageView
	r.depthImage = vk.NullImage
	r.depthImageMem = vk.NullDeviceMemory
}

func (r *ResourceProvisioner) DepthFormat() (vk.Format, error) {
	if r.depthFormat != vk.Format(0) {
		return r.depthFormat, nil
	}
	return r.findDepthFormat()
}

func (r *ResourceProvisioner) findDepthFormat() (vk.Format, error) {
	return r.findSupportedFormat(
		[]vk.Format{vk.FormatD32Sfloat, vk.FormatD32SfloatS8Uint, vk.FormatD24UnormS8Uint},
		vk.ImageTilingOptimal,
		vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit),
	)
}

func (r *ResourceProvisioner) findSupportedFormat(candidates []vk.Format, tiling vk.ImageTiling, features vk.FormatFeatureFlags) (vk.Format, error) {
	for _, format := range candidates {
		var fProps vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(r.dc.PhysicalDevice, format, &fProps)
		fProps.Deref()
		if tiling == vk.ImageTilingLinear && (fProps.LinearTilingFeatures&features) == features {
			return format, nil
		} else if tiling == vk.ImageTilingOptimal && (fProps.OptimalTilingFeatures&features) == features {
			return format, nil
		}
	}
	return vk.Format(0), errors.New("no supported format among candidates")
}

func hasStencilComponent(format vk.Format) bool {
	return format == vk.FormatD32SfloatS8Uint || format == vk.FormatD24UnormS8Uint
}

func (r *ResourceProvisioner) CreateDescriptorPool() error {
	uboPoolSize := vk.DescriptorPoolSize{
		Type:            vk.DescriptorTypeUniformBuffer,
		DescriptorCount: uint32(r.framesInFlight),
	}
	texSamplerPoolSize := vk.DescriptorPoolSize{
		Type:            vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: uint32(r.framesInFlight),
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PNext:         nil,
		Flags:         0,
		MaxSets:       uint32(r.framesInFlight),
		PoolSizeCount: 2,
		PPoolSizes:    []vk.DescriptorPoolSize{uboPoolSize, texSamplerPoolSize},
	}
	dp, err := common.VkCreateDescriptorPool(r.dc.D, &poolInfo, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create descriptor pool")
	}
	r.descriptorPool = dp
	log.Printf("Descriptor pool created successfully!")
	return nil
}

// CreateDescriptorSets allocates one set per frame in flight against the fixed layout and
// points each at its frame's uniform buffer plus the shared texture and sampler.
func (r *ResourceProvisioner) CreateDescriptorSets() error {
	layouts := make([]vk.DescriptorSetLayout, r.framesInFlight)
	for i := range layouts {
		layouts[i] = r.SetLayout
	}
	sets, err := common.VkAllocateDescriptorSets(r.dc.D, r.descriptorPool, layouts)
	if err != nil {
		return errors.Wrap(err, "failed to allocate descriptor sets")
	}
	r.descriptorSets = sets

	for i := 0; i < r.framesInFlight; i++ {
		bufferInfo := vk.DescriptorBufferInfo{
			Buffer: r.uniformBuffers[i].Handle,
			Offset: 0,
			Range:  vk.DeviceSize(model.SizeOfUbo()),
		}
		uboDescriptorWrite := vk.WriteDescriptorSet{
			SType:            vk.StructureTypeWriteDescriptorSet,
			PNext:            nil,
			DstSet:           r.descriptorSets[i],
			DstBinding:       0,
			DstArrayElement:  0,
			DescriptorCount:  1,
			DescriptorType:   vk.DescriptorTypeUniformBuffer,
			PImageInfo:       nil,
			PBufferInfo:      []vk.DescriptorBufferInfo{bufferInfo},
			PTexelBufferView: nil,
		}
		texSampler := vk.DescriptorImageInfo{
			Sampler:     r.textureSampler,
			ImageView:   r.textureImageView,
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		}
		texSamplerDescriptorWrite := vk.WriteDescriptorSet{
			SType:            vk.StructureTypeWriteDescriptorSet,
			PNext:            nil,
			DstSet:           r.descriptorSets[i],
			DstBinding:       1, // <-- 'layout(binding = 1) uniform sampler2D texSampler;'
			DstArrayElement:  0,
			DescriptorCount:  1,
			DescriptorType:   vk.DescriptorTypeCombinedImageSampler,
			PImageInfo:       []vk.DescriptorImageInfo{texSampler},
			PBufferInfo:      nil,
			PTexelBufferView: nil,
		}
		writes := []vk.WriteDescriptorSet{uboDescriptorWrite, texSamplerDescriptorWrite}
		vk.UpdateDescriptorSets(r.dc.D, uint32(len(writes)), writes, 0, nil)
	}
	log.Printf("Descriptor set created successfully!")
	return nil
}
