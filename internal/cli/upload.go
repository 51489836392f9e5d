package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tcg_inventory_v1/internal/model"
	"tcg_inventory_v1/internal/service"
	"tcg_inventory_v1/pkg/utils"
)

// SchemaLoader 类目属性加载
type SchemaLoader interface {
	Load(ctx context.Context, categoryID string) (*service.AspectSchema, string)
}

// uploadDeps 上传命令依赖
type uploadDeps struct {
	issuer   service.UploadURLIssuer
	transfer service.ObjectTransfer
	loader   service.ItemLoader
	store    service.InventoryStore
	schema   SchemaLoader
	logger   *zap.Logger
}

type uploadOptions struct {
	sku        string
	dir        string
	attach     bool
	categoryID string
}

// UploadCommand 批量上传目录中的图片
func UploadCommand(getApp func() *app) *cobra.Command {
	var opts uploadOptions

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload every image in a directory for an inventory item",
		Long: `Upload the images found in a directory (sorted by file name) to hosted
storage under the given SKU. With --attach the hosted URLs are appended to
the item's existing images and the item is saved.

Examples:
  tcg-inventory upload --sku PKM-BASE-004 --dir ./scans/charizard
  tcg-inventory upload --sku PKM-BASE-004 --dir ./scans/charizard --attach`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			if opts.categoryID == "" {
				opts.categoryID = a.cfg.CategoryID
			}
			deps := uploadDeps{
				issuer:   a.inventory,
				transfer: a.inventory,
				loader:   a.inventory,
				store:    a.inventory,
				schema:   a.taxonomy,
				logger:   a.logger,
			}
			return runUpload(cmd.Context(), deps, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.sku, "sku", "", "Inventory item SKU")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "Directory containing images")
	cmd.Flags().BoolVar(&opts.attach, "attach", false, "Save the uploaded images onto the item")
	cmd.Flags().StringVar(&opts.categoryID, "category", "", "eBay category ID used when saving aspects")
	_ = cmd.MarkFlagRequired("sku")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func runUpload(ctx context.Context, deps uploadDeps, opts uploadOptions, out io.Writer) error {
	if opts.sku == "" {
		return service.ErrMissingSKU
	}

	files, err := loadImageDir(opts.dir)
	if err != nil {
		return err
	}

	uploader := service.NewImageUploader(nil, deps.issuer, deps.transfer, nil, deps.logger)
	defer uploader.ReleaseAll()

	// 追加模式先带入已有图片，数量上限包含已有图片
	var record *itemRecord
	if opts.attach {
		record, err = loadItemRecord(ctx, deps, opts)
		if err != nil {
			return err
		}
		uploader.Replace(service.HydrateHosted(record.imageURLs))
	}

	added := uploader.Add(files)
	for _, reason := range added.RejectedReasons {
		fmt.Fprintln(out, "skipped:", reason)
	}
	if len(added.Accepted) == 0 {
		return fmt.Errorf("目录中没有可上传的图片: %s", opts.dir)
	}

	filenames, err := uploader.UploadPending(ctx, opts.sku, service.UploadCallbacks{
		OnProgress: func(completed, total int) {
			if total > 0 {
				fmt.Fprintf(out, "uploaded %d/%d\n", completed, total)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("上传中断 (已完成 %d 张): %w", len(filenames), err)
	}

	for _, u := range uploader.HostedURLs() {
		fmt.Fprintln(out, u)
	}

	if !opts.attach {
		return nil
	}
	payload := service.BuildPayload(record.values, record.aspects, uploader.Entries(), record.fieldMap)
	if err := deps.store.UpdateItem(ctx, opts.sku, payload); err != nil {
		return err
	}
	fmt.Fprintf(out, "Inventory item %s updated with %d images.\n", opts.sku, len(uploader.HostedURLs()))
	return nil
}

// itemRecord 已有库存记录在表单中的表示
type itemRecord struct {
	values    model.FormValues
	aspects   model.AspectValueMap
	fieldMap  model.AspectFieldMap
	imageURLs []string
}

func loadItemRecord(ctx context.Context, deps uploadDeps, opts uploadOptions) (*itemRecord, error) {
	raw, err := deps.loader.GetItem(ctx, opts.sku)
	if err != nil {
		return nil, err
	}

	fieldMap := model.AspectFieldMap{}
	if deps.schema != nil {
		schema, _ := deps.schema.Load(ctx, opts.categoryID)
		if schema != nil && schema.FieldMap != nil {
			fieldMap = schema.FieldMap
		}
	}

	return &itemRecord{
		values:    service.RecordToFormValues(raw),
		aspects:   service.SanitizeForSchema(service.RecordToAspectValues(raw), fieldMap),
		fieldMap:  fieldMap,
		imageURLs: service.RecordToImageURLs(raw),
	}, nil
}

// loadImageDir 读取目录下的文件 (不递归)，按文件名排序
func loadImageDir(dir string) ([]*model.LocalFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("读取目录失败: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	files := make([]*model.LocalFile, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("读取文件失败 %s: %w", name, err)
		}
		contentType := http.DetectContentType(data)
		if !utils.IsImageContentType(contentType) && utils.IsSupportedImageFile(name, "") {
			// 嗅探失败时按扩展名判定 (如 HEIC)
			contentType = "image/" + utils.FileExtension(name)
		}
		files = append(files, &model.LocalFile{Name: name, ContentType: contentType, Data: data})
	}
	return files, nil
}
