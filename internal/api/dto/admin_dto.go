package dto

import (
	"strconv"

	"bluberry_store_v1/pkg/backend"
)

// ProductListQuery 后台商品列表查询
type ProductListQuery struct {
	Page     int    `form:"page,default=1" binding:"min=1"`
	PageSize int    `form:"page_size,default=20" binding:"min=1,max=100"`
	Status   string `form:"status"`
	Search   string `form:"search"`
	DateFrom string `form:"date_from"`
	DateTo   string `form:"date_to"`
}

// ToBackend 转为后端查询
func (q *ProductListQuery) ToBackend() backend.ProductQuery {
	return backend.ProductQuery{
		Page:     q.Page,
		PageSize: q.PageSize,
		Status:   q.Status,
		Search:   q.Search,
		DateFrom: q.DateFrom,
		DateTo:   q.DateTo,
	}
}

// ProductActionURI 商品状态操作
type ProductActionURI struct {
	ID     int64  `uri:"id" binding:"required,min=1"`
	Action string `uri:"action" binding:"required,admin_action"`
}

// ListProductRequest 上架时带上当前价格
type ListProductRequest struct {
	FinalListingPrice float64 `json:"final_listing_price"`
	FinalPrice        float64 `json:"final_price"`
}

// UpdatePriceRequest 修改最终价格，数字或字符串均可，原样转交校验
type UpdatePriceRequest struct {
	FinalPrice interface{} `json:"final_price" swaggertype:"string"`
}

// Raw 价格原始文本
func (r *UpdatePriceRequest) Raw() string {
	switch v := r.FinalPrice.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
