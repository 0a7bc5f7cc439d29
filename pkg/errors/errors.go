package errors

import "errors"

// 错误分级约定：
//   - 仅存储层错误与刷卡资料档完全缺失视为致命，向上传播中止本次运行
//   - 单表/单 Sheet/单行的问题记日志后跳过，流程继续（尽力而为的 ETL）

// ErrMissingSourceFile 必需的来源档案不存在
var ErrMissingSourceFile = errors.New("来源档案不存在")

// ErrPunchTableMissing punch 表不存在，无法进行后续处理
var ErrPunchTableMissing = errors.New("punch 表不存在")

// ErrNoTimeColumns integrated_punch 表中找不到任何刷卡时间栏位
var ErrNoTimeColumns = errors.New("找不到刷卡时间栏位")

// ErrNoIntegratedData integrated_punch 表为空，无资料可供清算
var ErrNoIntegratedData = errors.New("integrated_punch 表无资料")
