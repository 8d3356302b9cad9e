package common

import (
	"log"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// SwapChain owns the presentable images the renderer draws into, their views and, once a render
// pass exists, one framebuffer per image. The image count is fixed for the lifetime of the handle;
// resizing replaces the whole SwapChain rather than mutating it.
type SwapChain struct {
	supDetails SwapChainDetails
	Handle     vk.Swapchain

	Format      vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extend      vk.Extent2D

	Images   []vk.Image
	ImgViews []vk.ImageView
	Aspect   float32

	FrameBuffers []vk.Framebuffer
}

func NewSwapChain(dc *Device, w *Window) (*SwapChain, error) {
	sc := &SwapChain{}
	sc.chooseConfiguration(dc, w)
	if err := sc.createSwapChainHandle(dc, w); err != nil {
		return nil, err
	}
	sc.readImages(dc)
	if err := sc.createImageViews(dc); err != nil {
		sc.Destroy(dc)
		return nil, err
	}

	// Precalculate the images' aspect ratio for later
	sc.Aspect = float32(sc.Extend.Width) / float32(sc.Extend.Height)

	return sc, nil
}

func (sc *SwapChain) CreateFrameBuffers(dc *Device, renderPass vk.RenderPass, depthImageView *vk.ImageView) error {
	sc.FrameBuffers = make([]vk.Framebuffer, len(sc.ImgViews))
	for i := range sc.ImgViews {
		attachments := []vk.ImageView{sc.ImgViews[i]}
		if depthImageView != nil {
			attachments = append(attachments, *depthImageView)
		}
		framebufferInfo := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			PNext:           nil,
			Flags:           0,
			RenderPass:      renderPass,
			AttachmentCount: uint32(len(attachments)),
			PAttachments:    attachments,
			Width:           sc.Extend.Width,
			Height:          sc.Extend.Height,
			Layers:          1,
		}
		fb, err := VkCreateFrameBuffer(dc.D, &framebufferInfo, nil)
		if err != nil {
			return errors.Wrapf(err, "failed to create frame buffer [%d]", i)
		}
		sc.FrameBuffers[i] = fb
	}
	log.Printf("Successfully created %d frame buffers", len(sc.FrameBuffers))
	return nil
}

func (sc *SwapChain) chooseConfiguration(dc *Device, w *Window) {
	sc.supDetails = ReadSwapChainSupportDetails(dc.PhysicalDevice, *w.Surf)
	sc.Format = sc.supDetails.selectSwapSurfaceFormat(vk.FormatB8g8r8a8Srgb, vk.ColorSpaceSrgbNonlinear)
	sc.PresentMode = sc.supDetails.selectSwapPresentMode(vk.PresentModeMailbox)
	sc.Extend = sc.supDetails.selectSwapExtent()
}

func (sc *SwapChain) createSwapChainHandle(dc *Device, w *Window) error {
	// Calc reasonable image count for swap chain
	imgCount := sc.supDetails.capabilities.MinImageCount + 1
	imgMaxCount := sc.supDetails.capabilities.MaxImageCount
	if imgMaxCount > 0 && imgCount > imgMaxCount {
		imgCount = imgMaxCount
	}

	// Depending on whether our queue families are the same for graphics and presentation, we need to choose different
	// swap chain configurations: https://vulkan-tutorial.com/Drawing_a_triangle/Presentation/Swap_chain
	indices := dc.QFamilies
	var sharingMode vk.SharingMode
	var indexCount uint32
	qFamIndices := []uint32{*indices.GraphicsFamily, *indices.PresentFamily}
	if *indices.GraphicsFamily != *indices.PresentFamily {
		sharingMode = vk.SharingModeConcurrent
		indexCount = 2
	} else {
		sharingMode = vk.SharingModeExclusive
		indexCount = 0
		qFamIndices = nil
	}

	// Reasonable default values for creating a swap chain
	createInfo := &vk.SwapchainCreateInfo{
		SType:                 vk.StructureTypeSwapchainCreateInfo,
		PNext:                 nil,
		Flags:                 0,
		Surface:               *w.Surf,
		MinImageCount:         imgCount,
		ImageFormat:           sc.Format.Format,
		ImageColorSpace:       sc.Format.ColorSpace,
		ImageExtent:           sc.Extend,
		ImageArrayLayers:      1,
		ImageUsage:            vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode:      sharingMode,
		QueueFamilyIndexCount: indexCount,
		PQueueFamilyIndices:   qFamIndices,
		PreTransform:          sc.supDetails.capabilities.CurrentTransform,
		CompositeAlpha:        vk.CompositeAlphaOpaqueBit,
		PresentMode:           sc.PresentMode,
		Clipped:               vk.True,
		OldSwapchain:          nil,
	}

	var err error
	sc.Handle, err = VkCreateSwapChain(dc.D, createInfo, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create swapchain")
	}
	log.Println("Swap chain created successfully")
	return nil
}

func (sc *SwapChain) readImages(dc *Device) {
	sc.Images = ReadSwapChainImages(dc.D, sc.Handle)
	log.Printf("Read %d swap chain image handles", len(sc.Images))
}

func (sc *SwapChain) createImageViews(dc *Device) error {
	sc.ImgViews = make([]vk.ImageView, len(sc.Images))
	for i := range sc.Images {
		iv, err := CreateImageViewDC(dc, sc.Images[i], sc.Format.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			return errors.Wrapf(err, "failed to create swap chain image view [%d]", i)
		}
		sc.ImgViews[i] = iv
	}
	log.Printf("Successfully created %d image views", len(sc.ImgViews))
	return nil
}

func (sc *SwapChain) Destroy(dc *Device) {
	for i := range sc.FrameBuffers {
		vk.DestroyFramebuffer(dc.D, sc.FrameBuffers[i], nil)
	}
	for i := range sc.ImgViews {
		vk.DestroyImageView(dc.D, sc.ImgViews[i], nil)
	}
	vk.DestroySwapchain(dc.D, sc.Handle, nil)
}

type SwapChainDetails struct {
	capabilities vk.SurfaceCapabilities
	formats      []vk.SurfaceFormat
	presentModes []vk.PresentMode
}

func (s *SwapChainDetails) selectSwapSurfaceFormat(desiredFormat vk.Format, desiredColorSpace vk.ColorSpace) vk.SurfaceFormat {
	for _, af := range s.formats {
		if af.Format == desiredFormat && af.ColorSpace == desiredColorSpace {
			return af
		}
	}
	fallbackFormat := s.formats[0]
	log.Printf("Did not find prefered SurfaceFormat, selecting first one available. (%v)", fallbackFormat)
	return fallbackFormat
}

func (s *SwapChainDetails) selectSwapPresentMode(desiredMode vk.PresentMode) vk.PresentMode {
	for _, pm := range s.presentModes {
		if pm == desiredMode {
			return pm
		}
	}
	fallbackMode := vk.PresentModeFifo
	log.Printf("Did not find prefered PresentMode, selecting FIFO. (%v)", fallbackMode)
	return fallbackMode
}

func (s *SwapChainDetails) selectSwapExtent() vk.Extent2D {
	// Returning the current extend directly as
	// https://github.com/vulkan-go/demos/blob/master/vulkandraw/vulkandraw.go does the same
	s.capabilities.CurrentExtent.Deref()
	return s.capabilities.CurrentExtent
}

func checkSwapChainAdequacy(pd vk.PhysicalDevice, surface vk.Surface) bool {
	scDetails := ReadSwapChainSupportDetails(pd, surface)
	return len(scDetails.formats) > 0 && len(scDetails.presentModes) > 0
}

// CreateImageViewDC builds a full-size 2D image view with identity swizzles, which covers every
// view this renderer needs (swap chain color, texture, depth).
func CreateImageViewDC(dc *Device, image vk.Image, format vk.Format, aspectFlags vk.ImageAspectFlags) (vk.ImageView, error) {
	createInfo := &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		PNext:    nil,
		Flags:    0,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectFlags,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	return VkCreateImageView(dc.D, createInfo, nil)
}
