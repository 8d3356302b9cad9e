package common

import (
	"fmt"
	"log"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/veandco/go-sdl2/sdl"
)

const APPLICATION_NAME = "VulkanMon"
const APP_MAJOR, APP_MINOR, APP_PATCH = 1, 0, 0
const ENGINE_NAME = "No Engine"
const ENGINE_MAJOR, ENGINE_MINOR, ENGINE_PATCH = 1, 0, 0

const SDL_MAJOR, SDL_MINOR, SDL_PATCH = int(sdl.MAJOR_VERSION), int(sdl.MINOR_VERSION), int(sdl.PATCHLEVEL)

// Vulkan spec go bindings = v1.0.7, as per: https://github.com/goki/vulkan = 1.3.239
const VK_SPEC_MAJOR, VK_SPEC_MINOR, VK_SPEC_PATCH int = 1, 3, 239

// Window encapsulates all window handling components and vulkan access objects to talk, to actual draw on screen. It
// uses SDL for window management and user input, for a Vulkan application. Thus simplifying the process of getting a
// vk.surface to draw on and interact with.
type Window struct {
	sdlVersion string
	vkVersion  string

	Win       *sdl.Window
	Resized   bool
	Minimized bool
	Close     bool

	Inst *vk.Instance
	Surf *vk.Surface
}

// NewWindow constructs a new Window struct by initializing the SDL window, the Vulkan API instance and the
// presentable surface, in that order. Failing any of these steps unwinds whatever was created before the
// failing step and reports it, so callers can treat the window as all-or-nothing. On tear down we need to
// destroy the: vk.surface, vk.instance and sdl.window.
func NewWindow(title string, w int32, h int32, validationLayers []string) (*Window, error) {
	window := &Window{
		sdlVersion: fmt.Sprintf("v%d.%d.%d", SDL_MAJOR, SDL_MINOR, SDL_PATCH),
		vkVersion:  fmt.Sprintf("v%d.%d.%d", VK_SPEC_MAJOR, VK_SPEC_MINOR, VK_SPEC_PATCH),
		Resized:    false,
		Minimized:  false,
		Close:      false,
	}
	if err := window.initSDLWindow(title, w, h); err != nil {
		return nil, err
	}
	if err := window.initVulkan(); err != nil {
		window.Win.Destroy()
		return nil, err
	}
	if err := window.createVulkanInstance(len(validationLayers) > 0, validationLayers); err != nil {
		window.Win.Destroy()
		return nil, err
	}
	if err := window.createSdlVkSurface(); err != nil {
		vk.DestroyInstance(*window.Inst, nil)
		window.Win.Destroy()
		return nil, err
	}
	log.Printf("Generated SDL/Vulkan window - SDL: %s Vulkan Spec: %s", window.sdlVersion, window.vkVersion)
	return window, nil
}

// Destroy is a convenience method to tear down all relevant instances (vk.surface, vk.instance and sdl.window)
// that have been initialized by itself.
func (w *Window) Destroy() {
	vk.DestroySurface(*w.Inst, *w.Surf, nil)
	vk.DestroyInstance(*w.Inst, nil)
	if err := w.Win.Destroy(); err != nil {
		log.Printf("Failed to destroy SDL window: %v", err)
	}
}

func (w *Window) initSDLWindow(title string, width int32, height int32) error {
	if err := sdl.Init(sdl.INIT_EVERYTHING); err != nil {
		return errors.Wrap(err, "failed to initialize SDL")
	}
	log.Println("Initialized SDL")
	win, err := sdl.CreateWindow(
		title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		width,
		height,
		sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE|sdl.WINDOW_VULKAN,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create SDL window for use with Vulkan")
	}
	log.Printf("Created SDL window for use with Vulkan. Title: \"%s\", Width: %d, Height: %d", title, width, height)
	w.Win = win
	return nil
}

func (w *Window) initVulkan() error {
	// Find and load Vulkan addresses to be able to call driver level functions via provided mechanism
	vk.SetGetInstanceProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err := vk.Init(); err != nil {
		return errors.Wrap(err, "failed to initialize Vulkan API")
	}
	return nil
}

func (w *Window) createVulkanInstance(enableValidation bool, validationLayers []string) error {
	requiredExtensions := w.Win.VulkanGetInstanceExtensions()
	if err := checkInstanceExtensionSupport(requiredExtensions); err != nil {
		return err
	}

	if enableValidation {
		log.Printf("Validation enabled, checking layer support")
		if err := checkValidationLayerSupport(validationLayers); err != nil {
			return err
		}
	}
	applicationInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PNext:              nil,
		PApplicationName:   TerminatedStr(APPLICATION_NAME),
		ApplicationVersion: vk.MakeVersion(APP_MAJOR, APP_MINOR, APP_PATCH),
		PEngineName:        TerminatedStr(ENGINE_NAME),
		EngineVersion:      vk.MakeVersion(ENGINE_MAJOR, ENGINE_MINOR, ENGINE_PATCH),
		ApiVersion:         vk.MakeVersion(VK_SPEC_MAJOR, VK_SPEC_MINOR, VK_SPEC_PATCH),
	}
	createInfo := &vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PNext:                   nil,
		Flags:                   0,
		PApplicationInfo:        applicationInfo,
		EnabledLayerCount:       0,
		PpEnabledLayerNames:     nil,
		EnabledExtensionCount:   uint32(len(requiredExtensions)),
		PpEnabledExtensionNames: TerminatedStrs(requiredExtensions),
	}
	if enableValidation {
		createInfo.EnabledLayerCount = uint32(len(validationLayers))
		createInfo.PpEnabledLayerNames = TerminatedStrs(validationLayers)
	}
	ins, err := VkCreateInstance(createInfo, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create vk instance")
	}
	w.Inst = &ins
	log.Println("Vulkan instance created successfully!")
	return nil
}

func checkInstanceExtensionSupport(requiredInstanceExt []string) error {
	supportedExtNames := ReadInstanceExtensionPropertyNames()
	log.Printf("Required instance extensions: %v", requiredInstanceExt)
	log.Printf("Available extensions (%d): %v", len(supportedExtNames), supportedExtNames)

	if !AllOfAinB(requiredInstanceExt, supportedExtNames) {
		return errors.New("at least one required instance extension is not supported")
	}
	log.Println("Success - All required instance extensions are supported")
	return nil
}

func checkValidationLayerSupport(requiredLayers []string) error {
	supportedLayerNames := ReadInstanceLayerPropertyNames()
	log.Printf("Desired validation layers: %v", requiredLayers)
	log.Printf("Supported layers (%d): %v", len(supportedLayerNames), supportedLayerNames)

	if !AllOfAinB(requiredLayers, supportedLayerNames) {
		return errors.New("at least one desired validation layer is not supported")
	}
	log.Println("Success - All desired validation layers are supported")
	return nil
}

func (w *Window) createSdlVkSurface() error {
	surf, err := SdlCreateVkSurface(w.Win, *w.Inst)
	if err != nil {
		return errors.Wrap(err, "failed to create SDL window's Vulkan-surface")
	}
	w.Surf = &surf
	log.Println("Window surface created successfully!")
	return nil
}
