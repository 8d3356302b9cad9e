package renderer

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"github.com/edeleiter/vulkanmon/common"
)

// One-shot transfer work submitted to the graphics queue. Each helper allocates a command
// buffer, records, submits and waits for the queue to drain before returning.

func (r *ResourceProvisioner) transitionImageLayout(img vk.Image, format vk.Format, old vk.ImageLayout, new vk.ImageLayout) error {
	cmdBuf, err := common.VKBeginSingleTimeCommands(r.dc.D, r.cmdPool)
	if err != nil {
		return errors.Wrap(err, "failed to begin layout transition")
	}

	var aspectFlags vk.ImageAspectFlags
	if new == vk.ImageLayoutDepthStencilAttachmentOptimal {
		aspectFlags = vk.ImageAspectFlags(vk.ImageAspectDepthBit)
		if hasStencilComponent(format) {
			aspectFlags = vk.ImageAspectFlags(vk.ImageAspectDepthBit | vk.ImageAspectStencilBit)
		}
	} else {
		aspectFlags = vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}

	var srcStage vk.PipelineStageFlags
	var dstStage vk.PipelineStageFlags
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		PNext:               nil,
		SrcAccessMask:       0, // set below
		DstAccessMask:       0, // set below
		OldLayout:           old,
		NewLayout:           new,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectFlags,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	if old == vk.ImageLayoutUndefined && new == vk.ImageLayoutTransferDstOptimal {
		barrier.SrcAccessMask = 0
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	} else if old == vk.ImageLayoutTransferDstOptimal && new == vk.ImageLayoutShaderReadOnlyOptimal {
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	} else if old == vk.ImageLayoutUndefined && new == vk.ImageLayoutDepthStencilAttachmentOptimal {
		barrier.SrcAccessMask = 0
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)
	} else {
		return errors.Errorf("unsupported image layout transition %d -> %d", old, new)
	}

	vk.CmdPipelineBarrier(
		cmdBuf,
		srcStage, dstStage,
		0,
		0, nil,
		0, nil,
		1, []vk.ImageMemoryBarrier{barrier},
	)

	return common.VKEndSingleTimeCommands(r.dc.D, r.cmdPool, r.dc.GraphicsQ, cmdBuf)
}

func (r *ResourceProvisioner) copyBufferToImage(buffer vk.Buffer, img vk.Image, w uint32, h uint32) error {
	cmdBuf, err := common.VKBeginSingleTimeCommands(r.dc.D, r.cmdPool)
	if err != nil {
		return errors.Wrap(err, "failed to begin buffer to image copy")
	}
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{
			X: 0,
			Y: 0,
			Z: 0,
		},
		ImageExtent: vk.Extent3D{
			Width:  w,
			Height: h,
			Depth:  1,
		},
	}
	vk.CmdCopyBufferToImage(cmdBuf, buffer, img, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
	return common.VKEndSingleTimeCommands(r.dc.D, r.cmdPool, r.dc.GraphicsQ, cmdBuf)
}

// copyBuffer moves size bytes between two buffers on the graphics queue. Used to promote
// staged vertex and index data into device-local memory.
func copyBuffer(dc *common.Device, pool vk.CommandPool, src *common.Buffer, dst *common.Buffer, size vk.DeviceSize) error {
	cmdBuf, err := common.VKBeginSingleTimeCommands(dc.D, pool)
	if err != nil {
		return errors.Wrap(err, "failed to begin buffer copy")
	}
	copyRegions := []vk.BufferCopy{
		{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      size,
		},
	}
	vk.CmdCopyBuffer(cmdBuf, src.Handle, dst.Handle, 1, copyRegions)
	return common.VKEndSingleTimeCommands(dc.D, pool, dc.GraphicsQ, cmdBuf)
}
