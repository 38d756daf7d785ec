package constants

// 本地存储键
const (
	StoreKeyCart        = "altruria_cart"
	StoreKeyCurrentUser = "altruria_current_user"
	StoreKeyTokens      = "altruria_tokens"
	StoreKeyOrders      = "altruriaOrders"
	StoreKeyCheckout    = "altruria_checkout"
	StoreKeyUsers       = "altruria_users"
)

// 存储驱动
const (
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
	StoreDriverRedis    = "redis"
	StoreDriverMemory   = "memory"
)

// 后端接口路径（相对于 API 基础地址）
const (
	EndpointRegister     = "/auth/register/"
	EndpointToken        = "/token/"
	EndpointTokenRefresh = "/token/refresh/"
	EndpointMe           = "/auth/me/"
	EndpointProducts     = "/products/"
	EndpointOrders       = "/orders/"
	EndpointMyOrders     = "/users/orders/"
)

// 队列
const (
	QueueDefault          = "default"
	TaskOrderHistorySync  = "order:history_sync"
	OrderHistorySyncRetry = 3
)

// 身份角色（casbin subject）
const (
	RoleAnonymous = "role:anonymous"
	RoleGuest     = "role:guest"
	RoleMember    = "role:member"
)

// 通知级别
const (
	NotifySuccess = "success"
	NotifyError   = "error"
	NotifyWarning = "warning"
	NotifyInfo    = "info"
)

// 用户可见提示
const (
	MsgQuantityIncreased      = "Quantity increased to %d"
	MsgQuantityDecreased      = "Quantity decreased to %d"
	MsgItemRemoved            = "Item removed from cart"
	MsgItemAdded              = "Item added to cart"
	MsgItemAddedNamed         = "\"%s\" added to cart!"
	MsgProductsUnresolved     = "Some products could not be loaded. Please check your cart."
	MsgCartEmpty              = "Your cart is empty. Add items before checking out"
	MsgCartEmptyProceed       = "Your cart is empty. Add some products first!"
	MsgLoginToContinue        = "Please log in to continue"
	MsgLoginRequired          = "Please log in to place an order"
	MsgGuestLoginRequired     = "Please log in or create an account to complete your order"
	MsgSessionExpired         = "Your session has expired. Please log in again."
	MsgOrderPlaced            = "Order placed successfully! Thank you for your purchase."
	MsgOrderFailedPrefix      = "Error placing order: "
	MsgOrderFailedUnknown     = "Unknown error"
	MsgOrderProcessingFailed  = "Error processing order. Please try again."
	MsgOrderNotPermitted      = "Your account is not allowed to place orders"
	MsgLoggedIn               = "Login successful!"
	MsgRegistered             = "Registration successful! Please log in."
	MsgLoggedOut              = "You have been logged out"
	MsgProfileUpdated         = "Profile updated successfully"
	MsgOrderHistoryFromBackup = "Could not load orders from the server. Showing saved orders."
)

// 结算表单校验提示
const (
	MsgSelectDeliveryMethod = "Please select a delivery method (Pick Up or Delivery)"
	MsgEnterName            = "Please enter your name"
	MsgEnterPhone           = "Please enter your phone number"
	MsgEnterEmail           = "Please enter your email"
	MsgInvalidEmail         = "Please enter a valid email address"
	MsgEnterAddress         = "Please enter your delivery address"
	MsgSelectPayment        = "Please select a payment method"
	MsgInvalidPayment       = "Please select a valid payment method"
	MsgSelectPickup         = "Please select a pick-up location"
)

// 账号表单校验提示
const (
	MsgEnterCredentials    = "Please enter your username and password"
	MsgUsernameTooShort    = "Username must be at least 3 characters."
	MsgPasswordTooShort    = "Password must be at least 8 characters."
	MsgPasswordMismatch    = "Passwords do not match."
	MsgInvalidPhone        = "Please enter a valid phone number."
	MsgFullNameTooShort    = "Full name must be at least 2 characters"
	MsgEmailExists         = "Account with that email already exists."
	MsgLoginToViewProfile  = "Please log in to view your profile"
	MsgLoginFailedPrefix   = "Login failed: "
	MsgRequestFailedPrefix = "Error: "
)

// 接口错误提示
const (
	MsgBadRequest            = "Invalid request"
	MsgInvalidProductID      = "Invalid product id"
	MsgInvalidQuantity       = "Quantity must be at least 1"
	MsgProductsFetchFailed   = "Could not load products. Please try again later."
	MsgProductNotFound       = "Product not found"
	MsgCartUpdateFailed      = "Could not update your cart. Please try again."
	MsgSubmissionInProgress  = "Your order is already being submitted"
	MsgAlreadySubmitted      = "This order has already been placed"
	MsgForbidden             = "You do not have permission to do that"
	MsgRateLimited           = "Too many attempts. Please try again in %d seconds."
	MsgRateLimitUnavailable  = "Service busy. Please try again later."
	MsgLocalUserNotFound     = "No account found with that email"
	MsgAccountRequestFailed  = "Request failed. Please try again."
	MsgNetworkError          = "Network error. Please check your connection."
	MsgPermissionCheckFailed = "Could not verify your permissions"
)
