package handler

import (
	"net/http"

	"bayanika.app/backend/internal/modules/proof/dto"
	proof "bayanika.app/backend/internal/modules/proof/service"
	"bayanika.app/backend/pkg/response"
	"bayanika.app/backend/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ProofHandler struct {
	service proof.ProofService
}

func NewProofHandler(service proof.ProofService) *ProofHandler {
	return &ProofHandler{service: service}
}

func (h *ProofHandler) SubmitProof(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	activityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid format"})
		return
	}

	var req dto.SubmitProofRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	var evidence []proof.EvidenceFile
	if form, err := c.MultipartForm(); err == nil {
		for _, fileHeader := range form.File["evidence"] {
			file, err := fileHeader.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read evidence file"})
				return
			}
			defer file.Close()
			evidence = append(evidence, proof.EvidenceFile{
				Reader:   file,
				FileName: fileHeader.Filename,
			})
		}
	}

	created, err := h.service.SubmitProof(c.Request.Context(), userID, activityID, req, evidence)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *ProofHandler) ApproveProof(c *gin.Context) {
	proofID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid format"})
		return
	}

	resp, err := h.service.ApproveProof(c.Request.Context(), proofID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ProofHandler) RejectProof(c *gin.Context) {
	proofID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid format"})
		return
	}

	var req dto.RejectProofRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	if err := h.service.RejectProof(c.Request.Context(), proofID, req.Reason); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "proof rejected"})
}

func (h *ProofHandler) ListPending(c *gin.Context) {
	proofs, err := h.service.ListPending(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, proofs)
}

func (h *ProofHandler) GetMyProofs(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	proofs, err := h.service.GetUserProofs(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, proofs)
}

func (h *ProofHandler) Mint(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	proofID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid format"})
		return
	}

	var req dto.MintRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	resp, err := h.service.Mint(c.Request.Context(), userID, proofID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
