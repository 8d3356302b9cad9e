package renderer

import (
	"log"
	"os"
	"time"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/edeleiter/vulkanmon/common"
	"github.com/edeleiter/vulkanmon/config"
	"github.com/edeleiter/vulkanmon/model"
)

// Core owns the full GPU state of the renderer, from the window and instance down to the
// per-frame sync objects. Construction runs a strict-ordered bootstrap where every stage
// either succeeds or unwinds everything built before it; after that, every other component
// receives its handles from here and nothing reaches for global state.
type Core struct {
	cfg config.Config

	Win       *common.Window
	device    *common.Device
	swapChain *common.SwapChain

	renderPass vk.RenderPass
	resources  *ResourceProvisioner
	builder    *PipelineBuilder
	pipeline   *Pipeline
	compiler   *GlslcCompiler
	reloader   *HotReloader

	commandPool    vk.CommandPool
	commandBuffers []vk.CommandBuffer

	framesInFlight     int
	currentFrameIdx    int32
	imageAvailableSems []vk.Semaphore
	renderFinishedSems []vk.Semaphore
	inFlightFens       []vk.Fence

	mesh         *model.Mesh
	vertexBuffer *common.Buffer
	indexBuffer  *common.Buffer

	Cam *model.Camera

	boot            *bootSequence
	startTime       time.Time
	reloadRequested bool
}

// NewCore bootstraps the whole rendering stack for the given mesh and camera. Any stage
// failure returns an InitError naming the stage, with everything built so far torn down again
// in reverse order.
func NewCore(cfg config.Config, cam *model.Camera, mesh *model.Mesh) (*Core, error) {
	c := &Core{
		cfg:            cfg,
		Cam:            cam,
		mesh:           mesh,
		framesInFlight: cfg.FramesInFlight,
		compiler:       NewGlslcCompiler(cfg.Shaders),
		boot:           &bootSequence{},
	}

	var validationLayers []string
	if cfg.EnableValidation {
		validationLayers = []string{"VK_LAYER_KHRONOS_validation"}
	}

	err := c.boot.run(
		initStage{
			name: "window",
			create: func() error {
				w, err := common.NewWindow(cfg.Title, cfg.Width, cfg.Height, validationLayers)
				c.Win = w
				return err
			},
			destroy: func() { c.Win.Destroy() },
		},
		initStage{
			name: "device",
			create: func() error {
				d, err := common.NewDevice(c.Win, validationLayers)
				c.device = d
				return err
			},
			destroy: func() { c.device.Destroy() },
		},
		initStage{
			name: "swapchain",
			create: func() error {
				sc, err := common.NewSwapChain(c.device, c.Win)
				if err != nil {
					return err
				}
				c.swapChain = sc
				// The number of frame slots must never exceed the images we can render into.
				if c.framesInFlight > len(sc.Images) {
					log.Printf("Clamping frames in flight from %d to %d swap chain images", c.framesInFlight, len(sc.Images))
					c.framesInFlight = len(sc.Images)
				}
				c.resources = NewResourceProvisioner(c.device, c.framesInFlight)
				return nil
			},
			destroy: func() { c.swapChain.Destroy(c.device) },
		},
		initStage{
			name: "render pass",
			create: func() error {
				return c.createRenderPass()
			},
			destroy: func() { vk.DestroyRenderPass(c.device.D, c.renderPass, nil) },
		},
		initStage{
			name: "command pool",
			create: func() error {
				return c.createCommandPool()
			},
			destroy: func() { vk.DestroyCommandPool(c.device.D, c.commandPool, nil) },
		},
		initStage{
			name: "depth resources",
			create: func() error {
				return c.resources.CreateDepthResources(c.swapChain.Extend)
			},
			destroy: func() { c.resources.DestroyDepthResources() },
		},
		initStage{
			name: "framebuffers",
			create: func() error {
				if err := c.swapChain.CreateFrameBuffers(c.device, c.renderPass, &c.resources.DepthImageView); err != nil {
					return err
				}
				log.Printf("Framebuffers created successfully!")
				return nil
			},
			// Framebuffers are destroyed with the swap chain.
			destroy: func() {},
		},
		initStage{
			name: "shaders",
			create: func() error {
				return c.compileShadersAtStartup()
			},
			destroy: func() {},
		},
		initStage{
			name: "descriptor set layout",
			create: func() error {
				return c.resources.CreateDescriptorSetLayout()
			},
			destroy: func() { vk.DestroyDescriptorSetLayout(c.device.D, c.resources.SetLayout, nil) },
		},
		initStage{
			name: "graphics pipeline",
			create: func() error {
				c.builder = NewPipelineBuilder(c.device.D, c.renderPass, c.resources.SetLayout)
				p, err := c.builder.Build(cfg.Shaders.VertexSpv, cfg.Shaders.FragmentSpv)
				c.pipeline = p
				return err
			},
			destroy: func() { c.pipeline.Destroy(c.device.D) },
		},
		initStage{
			name: "texture",
			create: func() error {
				return c.resources.CreateTexture(cfg.TexturePath)
			},
			destroy: func() {
				vk.DestroySampler(c.device.D, c.resources.textureSampler, nil)
				vk.DestroyImageView(c.device.D, c.resources.textureImageView, nil)
				vk.DestroyImage(c.device.D, c.resources.textureImage, nil)
				vk.FreeMemory(c.device.D, c.resources.textureImageMem, nil)
			},
		},
		initStage{
			name: "vertex buffer",
			create: func() error {
				return c.createVertexBuffer()
			},
			destroy: func() { common.DestroyBuffer(c.device, c.vertexBuffer) },
		},
		initStage{
			name: "index buffer",
			create: func() error {
				return c.createIndexBuffer()
			},
			destroy: func() { common.DestroyBuffer(c.device, c.indexBuffer) },
		},
		initStage{
			name: "uniform buffers",
			create: func() error {
				return c.resources.CreateUniformBuffers()
			},
			destroy: func() {
				for _, b := range c.resources.uniformBuffers {
					vk.UnmapMemory(c.device.D, b.DeviceMem)
					common.DestroyBuffer(c.device, b)
				}
			},
		},
		initStage{
			name: "descriptor pool",
			create: func() error {
				return c.resources.CreateDescriptorPool()
			},
			destroy: func() { vk.DestroyDescriptorPool(c.device.D, c.resources.descriptorPool, nil) },
		},
		initStage{
			name: "descriptor sets",
			create: func() error {
				return c.resources.CreateDescriptorSets()
			},
			// Sets are freed with their pool.
			destroy: func() {},
		},
		initStage{
			name: "command buffers",
			create: func() error {
				return c.createCommandBuffers()
			},
			destroy: func() {},
		},
		initStage{
			name: "sync objects",
			create: func() error {
				return c.createSyncObjects()
			},
			destroy: func() { c.destroySyncObjects() },
		},
	)
	if err != nil {
		return nil, err
	}

	c.reloader = NewHotReloader(
		c.compiler,
		func() error { return vk.Error(vk.DeviceWaitIdle(c.device.D)) },
		func() (*Pipeline, error) { return c.builder.Build(cfg.Shaders.VertexSpv, cfg.Shaders.FragmentSpv) },
		func(next *Pipeline) *Pipeline {
			old := c.pipeline
			c.pipeline = next
			return old
		},
		func(old *Pipeline) { old.Destroy(c.device.D) },
	)
	c.startTime = time.Now()
	return c, nil
}

// compileShadersAtStartup runs the external compiler once so the binaries match the sources on
// disk. If compilation fails but earlier binaries exist, those are used instead, the same
// keep-what-works rule the hot reload path follows.
func (c *Core) compileShadersAtStartup() error {
	if err := c.compiler.CompileVertex(); err != nil {
		return c.fallBackToBinaries(err)
	}
	if err := c.compiler.CompileFragment(); err != nil {
		return c.fallBackToBinaries(err)
	}
	return nil
}

func (c *Core) fallBackToBinaries(compileErr error) error {
	_, errV := os.Stat(c.cfg.Shaders.VertexSpv)
	_, errF := os.Stat(c.cfg.Shaders.FragmentSpv)
	if errV == nil && errF == nil {
		log.Printf("Shader compilation failed, falling back to existing binaries: %v", compileErr)
		return nil
	}
	return compileErr
}

func (c *Core) createRenderPass() error {
	depthFormat, err := c.resources.DepthFormat()
	if err != nil {
		return err
	}
	colorAttachment := vk.AttachmentDescription{
		Flags:          0,
		Format:         c.swapChain.Format.Format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}
	colorAttachmentRef := vk.AttachmentReference{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}
	depthAttachment := vk.AttachmentDescription{
		Flags:          0,
		Format:         depthFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpDontCare,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
	}
	depthAttachmentRef := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}
	subpass := vk.SubpassDescription{
		Flags:                   0,
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		InputAttachmentCount:    0,
		PInputAttachments:       nil,
		ColorAttachmentCount:    1,
		PColorAttachments:       []vk.AttachmentReference{colorAttachmentRef},
		PResolveAttachments:     nil,
		PDepthStencilAttachment: &depthAttachmentRef,
		PreserveAttachmentCount: 0,
		PPreserveAttachments:    nil,
	}
	// One frame's color and depth writes must complete before the next frame's begin.
	dependency := vk.SubpassDependency{
		SrcSubpass:      vk.SubpassExternal,
		DstSubpass:      0,
		SrcStageMask:    vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
		DstStageMask:    vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
		SrcAccessMask:   0,
		DstAccessMask:   vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
		DependencyFlags: 0,
	}
	renderPassInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		PNext:           nil,
		Flags:           0,
		AttachmentCount: 2,
		PAttachments:    []vk.AttachmentDescription{colorAttachment, depthAttachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}
	rp, err := common.VkCreateRenderPass(c.device.D, &renderPassInfo, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create render pass")
	}
	c.renderPass = rp
	log.Printf("Render pass created successfully!")
	return nil
}

func (c *Core) createCommandPool() error {
	commandPool, err := common.VKSCreateCommandPool(
		c.device.D,
		vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		*c.device.QFamilies.GraphicsFamily,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create command pool")
	}
	c.commandPool = commandPool
	c.resources.cmdPool = commandPool
	log.Printf("Command pool created successfully!")
	return nil
}

func (c *Core) createVertexBuffer() error {
	bufSize := vk.DeviceSize(c.mesh.VertexBufferSize())
	stgBuf, err := common.CreateBuffer(
		c.device,
		bufSize,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create vertex staging buffer")
	}
	defer common.DestroyBuffer(c.device, stgBuf)

	if err := common.CopyToDeviceBuffer(c.device, stgBuf, c.mesh.VertexBufferBytes()); err != nil {
		return err
	}
	vertBuf, err := common.CreateBuffer(
		c.device,
		bufSize,
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit|vk.BufferUsageVertexBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create vertex buffer")
	}
	if err := copyBuffer(c.device, c.commandPool, stgBuf, vertBuf, bufSize); err != nil {
		common.DestroyBuffer(c.device, vertBuf)
		return err
	}
	c.vertexBuffer = vertBuf
	log.Printf("Vertex buffer created successfully! (%d Byte)", bufSize)
	return nil
}

func (c *Core) createIndexBuffer() error {
	bufSize := vk.DeviceSize(c.mesh.IndexBufferSize())
	stgBuf, err := common.CreateBuffer(
		c.device,
		bufSize,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create index staging buffer")
	}
	defer common.DestroyBuffer(c.device, stgBuf)

	if err := common.CopyToDeviceBuffer(c.device, stgBuf, c.mesh.IndexBufferBytes()); err != nil {
		return err
	}
	idxBuf, err := common.CreateBuffer(
		c.device,
		bufSize,
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit|vk.BufferUsageIndexBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create index buffer")
	}
	if err := copyBuffer(c.device, c.commandPool, stgBuf, idxBuf, bufSize); err != nil {
		common.DestroyBuffer(c.device, idxBuf)
		return err
	}
	c.indexBuffer = idxBuf
	log.Printf("Index buffer created successfully! (%d Byte)", bufSize)
	return nil
}

func (c *Core) createCommandBuffers() error {
	buffers, err := common.VKAllocateCommandBuffersPrimary(c.device.D, c.commandPool, uint32(c.framesInFlight))
	if err != nil {
		return errors.Wrap(err, "failed to allocate command buffers")
	}
	c.commandBuffers = buffers
	log.Printf("Command buffers allocated successfully!")
	return nil
}

func (c *Core) createSyncObjects() error {
	ias := make([]vk.Semaphore, c.framesInFlight)
	rfs := make([]vk.Semaphore, c.framesInFlight)
	iff := make([]vk.Fence, c.framesInFlight)
	semCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
		PNext: nil,
		Flags: 0,
	}
	// Fences start signalled so the first frame's wait returns immediately.
	fenCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		PNext: nil,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}
	for i := 0; i < c.framesInFlight; i++ {
		var err error
		if ias[i], err = common.VkCreateSemaphore(c.device.D, &semCreateInfo, nil); err != nil {
			return errors.Wrap(err, "failed to create image available semaphore")
		}
		if rfs[i], err = common.VkCreateSemaphore(c.device.D, &semCreateInfo, nil); err != nil {
			return errors.Wrap(err, "failed to create render finished semaphore")
		}
		if iff[i], err = common.VkCreateFence(c.device.D, &fenCreateInfo, nil); err != nil {
			return errors.Wrap(err, "failed to create in flight fence")
		}
	}
	c.imageAvailableSems = ias
	c.renderFinishedSems = rfs
	c.inFlightFens = iff
	log.Printf("Sync objects created successfully!")
	return nil
}

func (c *Core) destroySyncObjects() {
	for i := 0; i < c.framesInFlight; i++ {
		vk.DestroySemaphore(c.device.D, c.imageAvailableSems[i], nil)
		vk.DestroySemaphore(c.device.D, c.renderFinishedSems[i], nil)
		vk.DestroyFence(c.device.D, c.inFlightFens[i], nil)
	}
}

// RequestShaderReload flags a reload to run between frames. Safe to call from the event
// handler, the loop picks it up before the next draw.
func (c *Core) RequestShaderReload() {
	c.reloadRequested = true
}

type iterationHandler func(sdl.Event, *Core)

// Loop drives event handling and frame production until the window closes or a fatal error
// surfaces. Reload requests are serviced between frames so a recompile never interleaves with
// command recording.
func (c *Core) Loop(ih iterationHandler) error {
	t0 := time.Now()
	frames := 0
	var event sdl.Event
	c.Win.Close = false
	for !c.Win.Close {
		for event = sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch ev := event.(type) {
			case *sdl.QuitEvent:
				c.Win.Close = true
			case *sdl.WindowEvent:
				if ev.Event == sdl.WINDOWEVENT_RESIZED {
					c.Win.Resized = true
				} else if ev.Event == sdl.WINDOWEVENT_MINIMIZED {
					c.Win.Minimized = true
				} else if ev.Event == sdl.WINDOWEVENT_RESTORED {
					c.Win.Minimized = false
				}
			case *sdl.KeyboardEvent:
				if ev.Keysym.Sym == sdl.K_ESCAPE {
					c.Win.Close = true
				}
			}
			ih(event, c)
		}
		if c.reloadRequested {
			c.reloadRequested = false
			// Reload failures keep the old pipeline live, rendering continues either way.
			_ = c.reloader.Reload()
		}
		if !c.Win.Minimized {
			if err := c.drawFrame(); err != nil {
				return err
			}
			frames++
		} else {
			// Sleep until new events change c.Win.Minimized
			sdl.WaitEvent()
		}
	}
	dt := time.Since(t0)
	log.Printf("Elapsed: %v, rough avg fps: %v fps", dt, float64(frames)/dt.Seconds())
	return nil
}

func (c *Core) recreateSwapChain() error {
	vk.DeviceWaitIdle(c.device.D)

	c.resources.DestroyDepthResources()
	c.swapChain.Destroy(c.device)

	sc, err := common.NewSwapChain(c.device, c.Win)
	if err != nil {
		return errors.Wrap(err, "failed to recreate swap chain")
	}
	c.swapChain = sc
	if err := c.resources.CreateDepthResources(sc.Extend); err != nil {
		return err
	}
	return c.swapChain.CreateFrameBuffers(c.device, c.renderPass, &c.resources.DepthImageView)
}

// Destroy waits for the device to go idle and unwinds everything in reverse creation order.
func (c *Core) Destroy() {
	vk.DeviceWaitIdle(c.device.D)
	c.boot.teardown()
}
