package controller

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"bluberry_store_v1/internal/api/dto"
	"bluberry_store_v1/internal/middleware"
	"bluberry_store_v1/internal/model"
	"bluberry_store_v1/internal/service"
)

// ==================== 控制器 ====================

// WizardController 物品提交向导
type WizardController struct {
	wizard      *service.WizardService
	estimates   *service.EstimateService
	submissions *service.SubmissionService
	idleTTL     time.Duration
}

func NewWizardController(wizard *service.WizardService, estimates *service.EstimateService, submissions *service.SubmissionService, idleTTL time.Duration) *WizardController {
	return &WizardController{
		wizard:      wizard,
		estimates:   estimates,
		submissions: submissions,
		idleTTL:     idleTTL,
	}
}

// ==================== 会话 ====================

// StartSession 新建向导
// @Summary 新建向导会话
// @Tags Wizard
// @Produce json
// @Success 201 {object} dto.WizardView
// @Router /api/wizard/sessions [post]
func (ctrl *WizardController) StartSession(c *gin.Context) {
	res, err := ctrl.wizard.StartSession(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "创建向导失败")
		return
	}
	middleware.SetWizardCookie(c, res.Session.SessionKey, ctrl.idleTTL)
	success(c, http.StatusCreated, dto.NewWizardView(res))
}

// GetSession 当前向导
// @Summary 获取当前向导
// @Tags Wizard
// @Produce json
// @Success 200 {object} dto.WizardView
// @Router /api/wizard [get]
func (ctrl *WizardController) GetSession(c *gin.Context) {
	key, ok := ctrl.wizardKey(c)
	if !ok {
		return
	}
	sess, err := ctrl.wizard.GetSession(c.Request.Context(), key)
	if err != nil {
		respondError(c, err, "获取向导失败")
		return
	}
	success(c, http.StatusOK, dto.NewWizardView(&service.WizardResult{Session: sess}))
}

// Restart 放弃当前向导，重新开始
// @Summary 重新开始
// @Tags Wizard
// @Produce json
// @Success 201 {object} dto.WizardView
// @Router /api/wizard/restart [post]
func (ctrl *WizardController) Restart(c *gin.Context) {
	res, err := ctrl.wizard.Restart(c.Request.Context(), middleware.WizardKey(c), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "重新开始失败")
		return
	}
	middleware.SetWizardCookie(c, res.Session.SessionKey, ctrl.idleTTL)
	success(c, http.StatusCreated, dto.NewWizardView(res))
}

// ==================== 物品 ====================

// AddItem 添加物品
// @Summary 添加空物品
// @Tags Wizard
// @Produce json
// @Success 200 {object} dto.WizardView
// @Router /api/wizard/items [post]
func (ctrl *WizardController) AddItem(c *gin.Context) {
	ctrl.run(c, "添加物品失败", func(key string) (*service.WizardResult, error) {
		return ctrl.wizard.AddItem(c.Request.Context(), key)
	})
}

// UpdateItem 修改物品字段
// @Summary 修改物品字段
// @Tags Wizard
// @Accept json
// @Produce json
// @Param item_id path string true "物品ID"
// @Param body body dto.UpdateItemRequest true "出现的字段才会修改"
// @Success 200 {object} dto.WizardView
// @Router /api/wizard/items/{item_id} [patch]
func (ctrl *WizardController) UpdateItem(c *gin.Context) {
	var req dto.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}
	changes := req.Fields()
	if len(changes) == 0 {
		badRequest(c, "没有需要修改的字段")
		return
	}

	itemKey := c.Param("item_id")
	ctrl.run(c, "更新物品失败", func(key string) (*service.WizardResult, error) {
		return ctrl.wizard.UpdateFields(c.Request.Context(), key, itemKey, changes)
	})
}

// RemoveItem 删除物品
// @Summary 删除物品
// @Tags Wizard
// @Param item_id path string true "物品ID"
// @Success 200 {object} dto.WizardView
// @Router /api/wizard/items/{item_id} [delete]
func (ctrl *WizardController) RemoveItem(c *gin.Context) {
	itemKey := c.Param("item_id")
	ctrl.run(c, "删除物品失败", func(key string) (*service.WizardResult, error) {
		return ctrl.wizard.RemoveItem(c.Request.Context(), key, itemKey)
	})
}

// DuplicateItem 复制物品
// @Summary 复制物品
// @Tags Wizard
// @Accept json
// @Param item_id path string true "物品ID"
// @Param body body dto.DuplicateItemRequest true "份数"
// @Success 200 {object} dto.WizardView
// @Router /api/wizard/items/{item_id}/duplicate [post]
func (ctrl *WizardController) DuplicateItem(c *gin.Context) {
	var req dto.DuplicateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}
	itemKey := c.Param("item_id")
	ctrl.run(c, "复制物品失败", func(key string) (*service.WizardResult, error) {
		return ctrl.wizard.DuplicateItem(c.Request.Context(), key, itemKey, req.Count)
	})
}

// ToggleItem 展开/收起
// @Summary 展开或收起物品
// @Tags Wizard
// @Param item_id path string true "物品ID"
// @Success 200 {object} dto.WizardView
// @Router /api/wizard/items/{item_id}/toggle [post]
func (ctrl *WizardController) ToggleItem(c *gin.Context) {
	itemKey := c.Param("item_id")
	ctrl.run(c, "更新物品失败", func(key string) (*service.WizardResult, error) {
		return ctrl.wizard.ToggleExpanded(c.Request.Context(), key, itemKey)
	})
}

// ==================== 图片 ====================

// AttachPhotos 上传图片
// @Summary 上传物品图片
// @Tags Wizard
// @Accept multipart/form-data
// @Param item_id path string true "物品ID"
// @Param photos formData file true "图片，可多张"
// @Success 200 {object} dto.WizardView
// @Router /api/wizard/items/{item_id}/photos [post]
func (ctrl *WizardController) AttachPhotos(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}
	headers := form.File["photos"]
	if len(headers) == 0 {
		badRequest(c, "请选择图片")
		return
	}

	files := make([]service.PhotoUpload, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			badRequest(c, "读取文件失败: "+err.Error())
			return
		}
		files = append(files, service.PhotoUpload{
			FileName: fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Data:     data,
		})
	}

	itemKey := c.Param("item_id")
	ctrl.run(c, "上传图片失败", func(key string) (*service.WizardResult, error) {
		return ctrl.wizard.AttachPhotos(c.Request.Context(), key, itemKey, files)
	})
}

// RemovePhoto 移除图片
// @Summary 移除物品图片
// @Tags Wizard
// @Param item_id path string true "物品ID"
// @Param photo_id path int true "图片ID"
// @Success 200 {object} dto.WizardView
// @Router /api/wizard/items/{item_id}/photos/{photo_id} [delete]
func (ctrl *WizardController) RemovePhoto(c *gin.Context) {
	photoID, err := strconv.ParseInt(c.Param("photo_id"), 10, 64)
	if err != nil || photoID <= 0 {
		badRequest(c, "无效的图片ID")
		return
	}
	itemKey := c.Param("item_id")
	ctrl.run(c, "移除图片失败", func(key string) (*service.WizardResult, error) {
		return ctrl.wizard.RemovePhoto(c.Request.Context(), key, itemKey, photoID)
	})
}

// SetImageURL 设置参考图片链接
// @Summary 设置参考图片链接
// @Tags Wizard
// @Accept json
// @Param item_id path string true "物品ID"
// @Param body body dto.ImageURLRequest true "链接"
// @Success 200 {object} dto.WizardView
// @Router /api/wizard/items/{item_id}/image-url [put]
func (ctrl *WizardController) SetImageURL(c *gin.Context) {
	var req dto.ImageURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}
	itemKey := c.Param("item_id")
	ctrl.run(c, "更新物品失败", func(key string) (*service.WizardResult, error) {
		return ctrl.wizard.SetImageURL(c.Request.Context(), key, itemKey, req.URL)
	})
}

// RemoveImageURL 清除参考图片链接
// @Summary 清除参考图片链接
// @Tags Wizard
// @Param item_id path string true "物品ID"
// @Success 200 {object} dto.WizardView
// @Router /api/wizard/items/{item_id}/image-url [delete]
func (ctrl *WizardController) RemoveImageURL(c *gin.Context) {
	itemKey := c.Param("item_id")
	ctrl.run(c, "更新物品失败", func(key string) (*service.WizardResult, error) {
		return ctrl.wizard.RemoveImageURL(c.Request.Context(), key, itemKey)
	})
}

// ==================== AI 建议 ====================

// RequestSuggestion 生成描述建议
// @Summary 生成描述建议
// @Tags Wizard
// @Param item_id path string true "物品ID"
// @Success 200 {object} dto.WizardView
// @Router /api/wizard/items/{item_id}/suggestion [post]
func (ctrl *WizardController) RequestSuggestion(c *gin.Context) {
	itemKey := c.Param("item_id")
	ctrl.run(c, "生成建议失败", func(key string) (*service.WizardResult, error) {
		return ctrl.wizard.RequestSuggestion(c.Request.Context(), key, itemKey)
	})
}

// ApplySuggestion 采用描述建议
// @Summary 采用描述建议
// @Tags Wizard
// @Param item_id path string true "物品ID"
// @Success 200 {object} dto.WizardView
// @Router /api/wizard/items/{item_id}/suggestion/apply [post]
func (ctrl *WizardController) ApplySuggestion(c *gin.Context) {
	itemKey := c.Param("item_id")
	ctrl.run(c, "采用建议失败", func(key string) (*service.WizardResult, error) {
		return ctrl.wizard.ApplySuggestion(c.Request.Context(), key, itemKey)
	})
}

// ==================== 估价与提交 ====================

// CalculateEstimates 批量估价
// @Summary 计算所有完整物品的估价
// @Tags Wizard
// @Success 200 {object} dto.WizardView
// @Failure 409 {object} map[string]interface{}
// @Router /api/wizard/estimate [post]
func (ctrl *WizardController) CalculateEstimates(c *gin.Context) {
	ctrl.run(c, "估价失败", func(key string) (*service.WizardResult, error) {
		return ctrl.estimates.CalculateEstimates(c.Request.Context(), key)
	})
}

// Next 进入联系信息
// @Summary 进入联系信息阶段
// @Tags Wizard
// @Success 200 {object} dto.WizardView
// @Router /api/wizard/next [post]
func (ctrl *WizardController) Next(c *gin.Context) {
	ctrl.run(c, "切换阶段失败", func(key string) (*service.WizardResult, error) {
		return ctrl.wizard.GoToContact(c.Request.Context(), key)
	})
}

// Back 返回物品列表
// @Summary 返回物品阶段
// @Tags Wizard
// @Success 200 {object} dto.WizardView
// @Router /api/wizard/back [post]
func (ctrl *WizardController) Back(c *gin.Context) {
	ctrl.run(c, "切换阶段失败", func(key string) (*service.WizardResult, error) {
		return ctrl.wizard.GoBack(c.Request.Context(), key)
	})
}

// UpdateContact 保存联系信息
// @Summary 保存联系与取件信息
// @Tags Wizard
// @Accept json
// @Param body body dto.ContactRequest true "联系信息"
// @Success 200 {object} dto.WizardView
// @Router /api/wizard/contact [put]
func (ctrl *WizardController) UpdateContact(c *gin.Context) {
	var req dto.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}
	pickup, err := service.ParsePickupDate(req.PickupDate, ctrl.submissions.Location())
	if err != nil {
		respondError(c, service.NewValidationError("Invalid Date", "Please select a valid pickup date."), "")
		return
	}

	in := service.ContactInput{
		FullName:        req.FullName,
		Email:           req.Email,
		Phone:           req.Phone,
		PickupAddress:   req.PickupAddress,
		PickupDate:      pickup,
		ConsentAccepted: req.ConsentAccepted,
	}
	ctrl.run(c, "保存联系信息失败", func(key string) (*service.WizardResult, error) {
		return ctrl.submissions.UpdateContact(c.Request.Context(), key, in)
	})
}

// Submit 最终提交
// @Summary 提交物品与联系信息
// @Tags Wizard
// @Success 200 {object} dto.WizardView
// @Failure 409 {object} map[string]interface{}
// @Router /api/wizard/submit [post]
func (ctrl *WizardController) Submit(c *gin.Context) {
	ctrl.run(c, "提交失败", func(key string) (*service.WizardResult, error) {
		return ctrl.submissions.Finalize(c.Request.Context(), key)
	})
}

// ==================== 内部方法 ====================

func (ctrl *WizardController) wizardKey(c *gin.Context) (string, bool) {
	key := middleware.WizardKey(c)
	if key == "" {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": service.ErrWizardNotFound.Error(),
		})
		return "", false
	}
	return key, true
}

// run 取向导会话键，执行操作并输出视图
func (ctrl *WizardController) run(c *gin.Context, fallback string, op func(key string) (*service.WizardResult, error)) {
	key, ok := ctrl.wizardKey(c)
	if !ok {
		return
	}
	res, err := op(key)
	if err != nil {
		respondError(c, err, fallback)
		return
	}
	if res.Session != nil && res.Session.Stage != model.WizardStageExpired {
		middleware.SetWizardCookie(c, key, ctrl.idleTTL)
	}
	success(c, http.StatusOK, dto.NewWizardView(res))
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
