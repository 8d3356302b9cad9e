package renderer

import (
	"log"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"github.com/edeleiter/vulkanmon/model"
)

// fenceTimeout bounds the wait on a frame's fence. A frame that takes this long is not slow,
// the device is gone.
const fenceTimeout = 5 * time.Second

// drawFrame produces one frame for the current frame-in-flight slot: wait for the slot's
// fence, acquire an image, re-record the slot's command buffer, submit and present. An
// out-of-date surface triggers swap chain recreation and skips the frame. Errors returned
// here are fatal to the loop.
func (c *Core) drawFrame() error {
	res := vk.WaitForFences(c.device.D, 1, []vk.Fence{c.inFlightFens[c.currentFrameIdx]}, vk.True, uint64(fenceTimeout.Nanoseconds()))
	if res == vk.Timeout {
		return errors.Wrapf(ErrDeviceLost, "frame fence not signalled within %v", fenceTimeout)
	} else if res != vk.Success {
		return errors.Errorf("failed to wait for frame fence, result code: %d", res)
	}

	var imgIdx uint32
	result := vk.AcquireNextImage(c.device.D, c.swapChain.Handle, math.MaxUint64, c.imageAvailableSems[c.currentFrameIdx], nil, &imgIdx)
	if result == vk.ErrorOutOfDate {
		log.Printf("Swap chain out of date on acquire, recreating")
		return c.recreateSwapChain()
	} else if result == vk.ErrorDeviceLost {
		return errors.Wrap(ErrDeviceLost, "device lost on image acquire")
	} else if result != vk.Success && result != vk.Suboptimal {
		return errors.Errorf("failed to acquire image, AcquireNextImage(...) result code: %d", result)
	}

	// Reset the fence only once work that will signal it again is certain to be submitted.
	vk.ResetFences(c.device.D, 1, []vk.Fence{c.inFlightFens[c.currentFrameIdx]})

	vk.ResetCommandBuffer(c.commandBuffers[c.currentFrameIdx], 0)
	if err := c.recordDrawCommands(c.commandBuffers[c.currentFrameIdx], imgIdx); err != nil {
		return err
	}

	c.updateUniformBuffer(c.currentFrameIdx)

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		PNext:              nil,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{c.imageAvailableSems[c.currentFrameIdx]},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{c.commandBuffers[c.currentFrameIdx]},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{c.renderFinishedSems[c.currentFrameIdx]},
	}
	if err := vk.Error(vk.QueueSubmit(c.device.GraphicsQ, 1, []vk.SubmitInfo{submitInfo}, c.inFlightFens[c.currentFrameIdx])); err != nil {
		return errors.Wrap(err, "failed to submit command buffer")
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		PNext:              nil,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{c.renderFinishedSems[c.currentFrameIdx]},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{c.swapChain.Handle},
		PImageIndices:      []uint32{imgIdx},
		PResults:           nil,
	}
	result = vk.QueuePresent(c.device.PresentQ, &presentInfo)
	if result == vk.ErrorOutOfDate || result == vk.Suboptimal || c.Win.Resized {
		c.Win.Resized = false
		log.Printf("Swap chain out of date or suboptimal on present, recreating")
		if err := c.recreateSwapChain(); err != nil {
			return err
		}
	} else if result == vk.ErrorDeviceLost {
		return errors.Wrap(ErrDeviceLost, "device lost on present")
	} else if result != vk.Success {
		return errors.Errorf("failed to present image, QueuePresent(...) result code: %d", result)
	}

	c.currentFrameIdx = (c.currentFrameIdx + 1) % int32(c.framesInFlight)
	return nil
}

// rotationDegPerSec spins the model at a constant rate relative to wall time, so the rotation
// speed is independent of frame rate.
const rotationDegPerSec = 45.0

func (c *Core) updateUniformBuffer(frameIdx int32) {
	elapsed := time.Since(c.startTime).Seconds()
	angle := mgl32.DegToRad(rotationDegPerSec) * float32(elapsed)
	axis := mgl32.Vec3{1, 1, 0}.Normalize()

	c.Cam.Aspect = c.swapChain.Aspect
	ubo := model.UniformBufferObject{
		Model:      mgl32.HomogRotate3D(angle, axis),
		View:       c.Cam.View(),
		Projection: c.Cam.Projection(),
	}
	c.resources.UpdateUniforms(frameIdx, &ubo)
}

func (c *Core) recordDrawCommands(buffer vk.CommandBuffer, imageIdx uint32) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType:            vk.StructureTypeCommandBufferBeginInfo,
		PNext:            nil,
		Flags:            0,
		PInheritanceInfo: nil,
	}
	if err := vk.Error(vk.BeginCommandBuffer(buffer, &beginInfo)); err != nil {
		return errors.Wrap(err, "failed to begin recording command buffer")
	}

	renderArea := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: c.swapChain.Extend,
	}
	clearValues := []vk.ClearValue{
		vk.NewClearValue([]float32{0.01, 0.01, 0.01, 1}), // color
		vk.NewClearDepthStencil(1, 0),                    // depthStencil
	}
	renderPassInfo := vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		PNext:           nil,
		RenderPass:      c.renderPass,
		Framebuffer:     c.swapChain.FrameBuffers[imageIdx],
		RenderArea:      renderArea,
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(buffer, &renderPassInfo, vk.SubpassContentsInline)

	vk.CmdBindPipeline(buffer, vk.PipelineBindPointGraphics, c.pipeline.Handle)

	viewport := []vk.Viewport{
		{
			X:        0,
			Y:        0,
			Width:    float32(c.swapChain.Extend.Width),
			Height:   float32(c.swapChain.Extend.Height),
			MinDepth: 0,
			MaxDepth: 1.0,
		},
	}
	vk.CmdSetViewport(buffer, 0, 1, viewport)

	scissor := []vk.Rect2D{
		{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: c.swapChain.Extend,
		},
	}
	vk.CmdSetScissor(buffer, 0, 1, scissor)

	vk.CmdBindDescriptorSets(buffer, vk.PipelineBindPointGraphics, c.pipeline.Layout, 0, 1, []vk.DescriptorSet{c.resources.DescriptorSet(c.currentFrameIdx)}, 0, nil)
	vertBuffers := []vk.Buffer{c.vertexBuffer.Handle}
	offsets := []vk.DeviceSize{0}
	vk.CmdBindVertexBuffers(buffer, 0, uint32(len(vertBuffers)), vertBuffers, offsets)
	vk.CmdBindIndexBuffer(buffer, c.indexBuffer.Handle, 0, vk.IndexTypeUint32)
	vk.CmdDrawIndexed(buffer, uint32(len(c.mesh.Indices)), 1, 0, 0, 0)

	vk.CmdEndRenderPass(buffer)
	if err := vk.Error(vk.EndCommandBuffer(buffer)); err != nil {
		return errors.Wrap(err, "failed to record command buffer")
	}
	return nil
}
