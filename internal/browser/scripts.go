// File: internal/browser/scripts.go
package browser

// In-page snippets used by the session. Selectors are injected JSON-encoded.

// probeScript reports how many elements match a selector and whether the
// first match is visible and accepts input.
const probeScript = `
((sel) => {
  let nodes;
  try {
    nodes = document.querySelectorAll(sel);
  } catch (e) {
    return { count: 0, visible: false, interactable: false };
  }
  if (nodes.length === 0) {
    return { count: 0, visible: false, interactable: false };
  }
  const el = nodes[0];
  const rect = el.getBoundingClientRect();
  const style = window.getComputedStyle(el);
  const visible = rect.width > 0 && rect.height > 0 &&
    style.display !== 'none' && style.visibility !== 'hidden' && style.opacity !== '0';
  const interactable = visible && !el.disabled && style.pointerEvents !== 'none';
  return { count: nodes.length, visible: visible, interactable: interactable };
})(%s)
`

// outerHTMLScript serializes one element, or null if the selector matches
// nothing.
const outerHTMLScript = `
((sel) => {
  const el = document.querySelector(sel);
  return el ? el.outerHTML : null;
})(%s)
`

// innerTextScript extracts the visible text of one element, or null if the
// selector matches nothing.
const innerTextScript = `
((sel) => {
  const el = document.querySelector(sel);
  if (!el) return null;
  return el.innerText !== undefined ? el.innerText : el.textContent;
})(%s)
`

// documentHTMLScript serializes the whole document.
const documentHTMLScript = `document.documentElement.outerHTML`

// documentTextScript extracts the rendered body text.
const documentTextScript = `document.body ? document.body.innerText : ''`

// captchaProbes detect the embed markers of the supported challenge
// providers.
var captchaProbes = map[string]string{
	"recaptcha": `
!!(document.querySelector('.g-recaptcha, iframe[src*="recaptcha"], #recaptcha') ||
   (window.grecaptcha !== undefined))`,
	"hcaptcha": `
!!(document.querySelector('.h-captcha, iframe[src*="hcaptcha"]') ||
   (window.hcaptcha !== undefined))`,
	"turnstile": `
!!(document.querySelector('.cf-turnstile, iframe[src*="challenges.cloudflare.com"]') ||
   (window.turnstile !== undefined))`,
}
