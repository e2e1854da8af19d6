package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/blogapi/internal/service"
	"github.com/d60-Lab/blogapi/pkg/response"
)

// UploadMedia 上传图片或视频，返回可写入 image_url/video_url 的地址
// @Summary 上传媒体
// @Tags 媒体
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "图片或视频"
// @Success 201 {object} response.Response{data=service.MediaView}
// @Failure 400 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /media/ [post]
func (h *Handler) UploadMedia(c *gin.Context) {
	if err := caller(c).Require(); err != nil {
		response.Error(c, err)
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	defer f.Close()

	v, err := h.media.Upload(c.Request.Context(), caller(c), service.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, v)
}
